package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid),
		errors.Is(err, auctionerrors.ErrInvalidAmount),
		errors.Is(err, auctionerrors.ErrInvalidMaxBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrNotActive):
		return http.StatusConflict, "auction is not accepting bids"
	case errors.Is(err, auctionerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid auction state transition"
	case errors.Is(err, auctionerrors.ErrConflict):
		return http.StatusServiceUnavailable, "auction is busy, retry the request"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusOK, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrBidderNoBids):
		return http.StatusOK, "no auctions found for bidder"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RejectionReason maps a submission error to its machine-readable reason code.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrNotActive):
		return "not_active"
	case errors.Is(err, auctionerrors.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, auctionerrors.ErrInvalidMaxBid):
		return "invalid_max_bid"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, auctionerrors.ErrConflict):
		return "conflict"
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// IsRejection reports whether the error is a per-submission rejection (the
// caller may resubmit with corrected values) rather than an internal failure.
func IsRejection(err error) bool {
	return errors.Is(err, auctionerrors.ErrNotActive) ||
		errors.Is(err, auctionerrors.ErrInvalidAmount) ||
		errors.Is(err, auctionerrors.ErrInvalidMaxBid) ||
		errors.Is(err, auctionerrors.ErrBidTooLow)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// FormatDecimal renders an optional decimal with minor-unit precision.
func FormatDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

// FormatTime renders an optional timestamp as RFC3339 UTC.
func FormatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// ToBidResponse converts a bid row to its response DTO.
func ToBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		MaxBid:    FormatDecimal(b.MaxBid),
		IsWinning: b.IsWinning,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToAuctionStatusResponse converts an auction to its response DTO.
func ToAuctionStatusResponse(a model.Auction) AuctionStatusResponse {
	return AuctionStatusResponse{
		AuctionID:       a.AuctionID,
		Status:          string(a.Status),
		CurrentBid:      FormatDecimal(a.CurrentBid),
		CurrentBidderID: a.CurrentBidderID,
		BidCount:        a.BidCount,
		ReserveMet:      a.ReserveMet,
		EndsAt:          FormatTime(a.EndsAt),
		WinnerID:        a.WinnerID,
		WinningBid:      FormatDecimal(a.WinningBid),
	}
}
