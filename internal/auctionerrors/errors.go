package auctionerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrBidderNoBids    = errors.New("bidder has not placed any bids")
	ErrConflict        = errors.New("auction was modified concurrently")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid request")
	ErrNotActive         = errors.New("auction is not accepting bids")
	ErrInvalidAmount     = errors.New("invalid bid amount")
	ErrInvalidMaxBid     = errors.New("invalid max bid")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrInvalidTransition = errors.New("invalid auction state transition")
)

// BidFloorError is a BidTooLow rejection carrying the minimum acceptable
// amount so the caller can retry without a follow-up query.
type BidFloorError struct {
	Minimum decimal.Decimal
}

func (e *BidFloorError) Error() string {
	return fmt.Sprintf("bid amount too low - minimum acceptable bid is %s", e.Minimum.StringFixed(2))
}

func (e *BidFloorError) Unwrap() error {
	return ErrBidTooLow
}
