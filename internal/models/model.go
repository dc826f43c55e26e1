package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionType distinguishes reserve auctions (hidden seller minimum) from
// no-reserve auctions. Immutable after creation.
type AuctionType string

const (
	TypeReserve   AuctionType = "reserve"
	TypeNoReserve AuctionType = "no_reserve"
)

// AuctionStatus is the auction lifecycle state.
type AuctionStatus string

const (
	StatusDraft     AuctionStatus = "draft"
	StatusScheduled AuctionStatus = "scheduled"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusSold      AuctionStatus = "sold"
	StatusUnsold    AuctionStatus = "unsold"
	StatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether no further bidding or transitions can occur.
func (s AuctionStatus) Terminal() bool {
	switch s {
	case StatusEnded, StatusSold, StatusUnsold, StatusCancelled:
		return true
	}
	return false
}

// Auction represents a timed auction listing. Bidding fields are mutated only
// through the bid engine; status and timing fields only through the engine's
// lifecycle operations.
type Auction struct {
	AuctionID         string           `json:"auction_id"`
	Title             string           `json:"title"`
	SellerID          string           `json:"seller_id"`
	Type              AuctionType      `json:"type"`
	StartingPrice     decimal.Decimal  `json:"starting_price"`
	ReservePrice      *decimal.Decimal `json:"reserve_price,omitempty"`
	MinimumIncrement  decimal.Decimal  `json:"minimum_increment"`
	CurrentBid        *decimal.Decimal `json:"current_bid,omitempty"`
	CurrentBidderID   string           `json:"current_bidder_id,omitempty"`
	BidCount          int              `json:"bid_count"`
	Status            AuctionStatus    `json:"status"`
	StartsAt          *time.Time       `json:"starts_at,omitempty"`
	EndsAt            *time.Time       `json:"ends_at,omitempty"`
	AutoExtend        bool             `json:"auto_extend"`
	AutoExtendMinutes int              `json:"auto_extend_minutes"`
	WinnerID          string           `json:"winner_id,omitempty"`
	WinningBid        *decimal.Decimal `json:"winning_bid,omitempty"`
	SoldAt            *time.Time       `json:"sold_at,omitempty"`
	ReserveMet        bool             `json:"reserve_met"`
	Version           int64            `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// RecomputeReserveMet refreshes the cached reserveMet flag:
// true for no-reserve auctions, otherwise currentBid >= reservePrice.
func (a *Auction) RecomputeReserveMet() {
	if a.Type == TypeNoReserve {
		a.ReserveMet = true
		return
	}
	a.ReserveMet = a.CurrentBid != nil && a.ReservePrice != nil &&
		a.CurrentBid.GreaterThanOrEqual(*a.ReservePrice)
}

// Clone returns a deep copy so callers cannot mutate shared pointer fields.
func (a Auction) Clone() Auction {
	c := a
	c.ReservePrice = cloneDecimal(a.ReservePrice)
	c.CurrentBid = cloneDecimal(a.CurrentBid)
	c.WinningBid = cloneDecimal(a.WinningBid)
	c.StartsAt = cloneTime(a.StartsAt)
	c.EndsAt = cloneTime(a.EndsAt)
	c.SoldAt = cloneTime(a.SoldAt)
	return c
}

// Bid represents a single immutable bid row. Amount is the bidder's visible
// commitment (what currentBid shows while this bid leads); MaxBid, when set,
// is their private proxy ceiling.
type Bid struct {
	BidID     string           `json:"bid_id"`
	AuctionID string           `json:"auction_id"`
	BidderID  string           `json:"bidder_id"`
	Amount    decimal.Decimal  `json:"amount"`
	MaxBid    *decimal.Decimal `json:"max_bid,omitempty"`
	IsWinning bool             `json:"is_winning"`
	CreatedAt time.Time        `json:"created_at"`
}

// Ceiling returns the effective maximum this bid commits to: the proxy
// ceiling when present, otherwise the flat amount.
func (b Bid) Ceiling() decimal.Decimal {
	if b.MaxBid != nil && b.MaxBid.GreaterThan(b.Amount) {
		return *b.MaxBid
	}
	return b.Amount
}

// Clone returns a deep copy of the bid.
func (b Bid) Clone() Bid {
	c := b
	c.MaxBid = cloneDecimal(b.MaxBid)
	return c
}

// Watcher subscribes a user to an auction's notifications.
type Watcher struct {
	AuctionID  string `json:"auction_id"`
	UserID     string `json:"user_id"`
	OnBid      bool   `json:"on_bid"`
	OnExtended bool   `json:"on_extended"`
	OnEnded    bool   `json:"on_ended"`
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
