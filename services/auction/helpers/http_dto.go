package helpers

import (
	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	BidderID string           `json:"bidder_id" binding:"required"`
	Amount   decimal.Decimal  `json:"amount" binding:"required"`
	MaxBid   *decimal.Decimal `json:"max_bid,omitempty"`
}

type LifecycleActionRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
}

type WatchRequest struct {
	OnBid      bool `json:"on_bid"`
	OnExtended bool `json:"on_extended"`
	OnEnded    bool `json:"on_ended"`
}

type BidReceiptResponse struct {
	Accepted        bool    `json:"accepted"`
	Reason          string  `json:"reason,omitempty"`
	BidID           string  `json:"bid_id,omitempty"`
	CurrentBid      *string `json:"current_bid,omitempty"`
	CurrentBidderID string  `json:"current_bidder_id,omitempty"`
	BidCount        int     `json:"bid_count"`
	ReserveMet      bool    `json:"reserve_met"`
	IsWinning       bool    `json:"is_winning"`
	EndsAt          *string `json:"ends_at,omitempty"`
	MinimumBid      *string `json:"minimum_bid,omitempty"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    string  `json:"amount"`
	MaxBid    *string `json:"max_bid,omitempty"`
	IsWinning bool    `json:"is_winning"`
	CreatedAt string  `json:"created_at"`
}

type AuctionStatusResponse struct {
	AuctionID       string  `json:"auction_id"`
	Status          string  `json:"status"`
	CurrentBid      *string `json:"current_bid,omitempty"`
	CurrentBidderID string  `json:"current_bidder_id,omitempty"`
	BidCount        int     `json:"bid_count"`
	ReserveMet      bool    `json:"reserve_met"`
	EndsAt          *string `json:"ends_at,omitempty"`
	WinnerID        string  `json:"winner_id,omitempty"`
	WinningBid      *string `json:"winning_bid,omitempty"`
}
