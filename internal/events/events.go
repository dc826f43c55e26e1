package events

import (
	"sync"
	"sync/atomic"
	"time"

	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

// Type identifies a domain event.
type Type string

const (
	TypeBidPlaced Type = "bid-placed"
	TypeExtended  Type = "extended"
	TypeEnded     Type = "ended"
)

// Event is a self-sufficient domain event payload: a subscriber can update a
// read-only cache from it without a follow-up query. Events for one auction
// are published in the order they were committed.
type Event struct {
	Type      Type      `json:"type"`
	AuctionID string    `json:"auction_id"`
	At        time.Time `json:"at"`

	// bid-placed
	BidID             string           `json:"bid_id,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	BidderDisplayName string           `json:"bidder_display_name,omitempty"`
	BidCount          int              `json:"bid_count"`
	ReserveMet        bool             `json:"reserve_met"`

	// extended
	NewEndsAt *time.Time `json:"new_ends_at,omitempty"`

	// ended
	Status     string           `json:"status,omitempty"`
	WinnerID   string           `json:"winner_id,omitempty"`
	WinningBid *decimal.Decimal `json:"winning_bid,omitempty"`
}

// Publisher receives committed domain events. Implementations must preserve
// per-auction arrival order; Publish must not block on slow consumers.
type Publisher interface {
	Publish(ev Event)
}

// NopPublisher discards events. Used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Fanout publishes to every wrapped publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ev Event) {
	for _, p := range f {
		p.Publish(ev)
	}
}

// Subscriber receives events for one auction over an ordered channel.
type Subscriber struct {
	C  chan Event
	id string
}

// Hub is an in-process fan-out: each subscriber gets its own buffered
// channel, so a slow subscriber cannot stall the rest. Events that overflow
// a subscriber's buffer are dropped (and counted), never reordered.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscriber]struct{} // auctionID -> subscribers
	dropped atomic.Int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber for one auction's events.
func (h *Hub) Subscribe(auctionID string, buffer int) *Subscriber {
	sub := &Subscriber{C: make(chan Event, buffer), id: utils.GenerateID()}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[auctionID] == nil {
		h.subs[auctionID] = make(map[*Subscriber]struct{})
	}
	h.subs[auctionID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *Hub) Unsubscribe(auctionID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[auctionID]; ok {
		if _, member := set[sub]; member {
			delete(set, sub)
			close(sub.C)
			if len(set) == 0 {
				delete(h.subs, auctionID)
			}
		}
	}
}

// Publish delivers the event to every subscriber of its auction.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[ev.AuctionID] {
		select {
		case sub.C <- ev:
		default:
			h.dropped.Add(1)
			utils.Warn("event dropped for slow subscriber", map[string]any{
				"auction_id": ev.AuctionID,
				"type":       string(ev.Type),
				"subscriber": sub.id,
			})
		}
	}
}
