package validator

import (
	"fmt"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Floor returns the minimum acceptable bid amount for the auction:
// the starting price while no bids exist, otherwise currentBid plus the
// minimum increment.
func Floor(a models.Auction) decimal.Decimal {
	if a.BidCount == 0 || a.CurrentBid == nil {
		return a.StartingPrice
	}
	return a.CurrentBid.Add(a.MinimumIncrement)
}

// Validate checks a proposed bid against the auction state. Pure: no side
// effects, safe to call from any concurrent context. Rules are checked in
// order and the first failure wins.
func Validate(a models.Auction, bidderID string, amount decimal.Decimal, maxBid *decimal.Decimal, now time.Time) error {
	if a.Status != models.StatusActive || a.EndsAt == nil || !now.Before(*a.EndsAt) {
		return fmt.Errorf("validate bid for auction %s: %w", a.AuctionID, auctionerrors.ErrNotActive)
	}

	if amount.Sign() <= 0 || amount.Exponent() < -2 {
		return fmt.Errorf("validate bid for auction %s: %w - amount must be positive with at most 2 decimal places", a.AuctionID, auctionerrors.ErrInvalidAmount)
	}

	if maxBid != nil {
		if maxBid.Exponent() < -2 {
			return fmt.Errorf("validate bid for auction %s: %w - max bid must have at most 2 decimal places", a.AuctionID, auctionerrors.ErrInvalidMaxBid)
		}
		if maxBid.LessThan(amount) {
			return fmt.Errorf("validate bid for auction %s: %w - max bid must be >= amount", a.AuctionID, auctionerrors.ErrInvalidMaxBid)
		}
	}

	floor := Floor(a)
	if amount.LessThan(floor) {
		// The current leader may raise their own proxy ceiling without
		// clearing the increment floor; the resolver treats it as a
		// no-op on the visible price.
		if isCeilingRaise(a, bidderID, amount, maxBid) {
			return nil
		}
		return fmt.Errorf("validate bid for auction %s: %w", a.AuctionID, &auctionerrors.BidFloorError{Minimum: floor})
	}

	return nil
}

func isCeilingRaise(a models.Auction, bidderID string, amount decimal.Decimal, maxBid *decimal.Decimal) bool {
	return bidderID != "" && bidderID == a.CurrentBidderID &&
		maxBid != nil && a.CurrentBid != nil &&
		amount.GreaterThanOrEqual(*a.CurrentBid)
}
