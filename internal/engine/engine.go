package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/events"
	"auction-engine/internal/models"
	"auction-engine/internal/proxy"
	"auction-engine/internal/repository"
	"auction-engine/internal/validator"
	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

const defaultMaxRetries = 5

// Engine is the serialized entry point for all bid acceptance and lifecycle
// transitions. Access is linearized per auction id: every mutating operation
// for one auction goes through the same keyed mutex, and the store write is
// additionally conditioned on the version read (so a racing writer on a
// shared store forces a retry against fresh state, never a stale accept).
// Different auctions proceed fully in parallel.
type Engine struct {
	store      repository.AuctionStore
	pub        events.Publisher
	maxRetries int
	locks      sync.Map // auctionID -> *sync.Mutex
	now        func() time.Time
}

// NewEngine creates an engine over the given store and event publisher.
func NewEngine(store repository.AuctionStore, pub events.Publisher) *Engine {
	return &Engine{
		store:      store,
		pub:        pub,
		maxRetries: defaultMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetMaxRetries bounds the internal conflict-retry budget.
func (e *Engine) SetMaxRetries(n int) {
	if n > 0 {
		e.maxRetries = n
	}
}

// BidReceipt is the outcome of a bid submission, self-sufficient for the
// caller to render the auction's new state.
type BidReceipt struct {
	Accepted        bool             `json:"accepted"`
	BidID           string           `json:"bid_id,omitempty"`
	CurrentBid      *decimal.Decimal `json:"current_bid,omitempty"`
	CurrentBidderID string           `json:"current_bidder_id,omitempty"`
	BidCount        int              `json:"bid_count"`
	ReserveMet      bool             `json:"reserve_met"`
	IsWinning       bool             `json:"is_winning"`
	EndsAt          *time.Time       `json:"ends_at,omitempty"`
	MinimumBid      *decimal.Decimal `json:"minimum_bid,omitempty"`
}

func (e *Engine) lockFor(auctionID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(auctionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// SubmitBid validates and applies one bid. The auction is re-read under the
// per-auction lock, so a submission that waited out a closing auction sees
// the terminal state and is rejected as NotActive rather than dropped.
// Rejections return the receipt for the current state alongside the error.
func (e *Engine) SubmitBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal, maxBid *decimal.Decimal) (BidReceipt, error) {
	if auctionID == "" || bidderID == "" {
		return BidReceipt{}, fmt.Errorf("engine: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}

	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		receipt, evs, err := e.trySubmit(ctx, auctionID, bidderID, amount, maxBid)
		if errors.Is(err, auctionerrors.ErrConflict) {
			utils.Warn("bid submission hit a concurrent update, retrying", map[string]any{
				"auction_id": auctionID,
				"bidder_id":  bidderID,
				"attempt":    attempt + 1,
			})
			continue
		}
		if err != nil {
			return receipt, err
		}
		// Published after commit, in commit order, while still holding
		// the per-auction lock: subscribers observe events in store order.
		for _, ev := range evs {
			e.pub.Publish(ev)
		}
		return receipt, nil
	}

	return BidReceipt{}, fmt.Errorf("submit bid for auction %s: retry budget exhausted: %w", auctionID, auctionerrors.ErrConflict)
}

func (e *Engine) trySubmit(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal, maxBid *decimal.Decimal) (BidReceipt, []events.Event, error) {
	a, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return BidReceipt{}, nil, fmt.Errorf("engine: %w", err)
	}

	now := e.now()
	if err := validator.Validate(a, bidderID, amount, maxBid, now); err != nil {
		receipt := receiptFor(a, bidderID)
		var floorErr *auctionerrors.BidFloorError
		if errors.As(err, &floorErr) {
			m := floorErr.Minimum
			receipt.MinimumBid = &m
		}
		return receipt, nil, fmt.Errorf("engine: %w", err)
	}

	var leader *models.Bid
	if a.BidCount > 0 {
		wb, err := e.store.GetWinningBid(ctx, auctionID)
		if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
			return BidReceipt{}, nil, fmt.Errorf("engine: failed to read leading bid for auction %s: %w", auctionID, err)
		}
		if err == nil {
			leader = &wb
		}
	}

	incoming := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		MaxBid:    maxBid,
		CreatedAt: now,
	}
	out := proxy.Resolve(a, leader, incoming)

	expected := a.Version
	newBid := out.CurrentBid
	a.CurrentBid = &newBid
	a.CurrentBidderID = out.CurrentBidderID
	a.BidCount += len(out.Rows)
	a.RecomputeReserveMet()
	a.UpdatedAt = now

	extended := false
	if out.LeadChanged || out.CeilingRaised {
		extended = applyAutoExtend(&a, now)
	}

	// The version-conditioned write commits the auction update and the bid
	// rows in one store call; a failed write leaves neither behind.
	updated, err := e.store.UpdateAuction(ctx, a, expected, out.Rows, out.WinningBidID)
	if err != nil {
		return BidReceipt{}, nil, fmt.Errorf("engine: %w", err)
	}

	evs := []events.Event{{
		Type:      events.TypeBidPlaced,
		AuctionID: auctionID,
		At:        now,
		BidID:     incoming.BidID,
		Amount:    updated.CurrentBid,
		// User profiles live outside this service; the bidder id doubles
		// as the display name.
		BidderDisplayName: bidderID,
		BidCount:          updated.BidCount,
		ReserveMet:        updated.ReserveMet,
	}}
	if extended {
		evs = append(evs, events.Event{
			Type:      events.TypeExtended,
			AuctionID: auctionID,
			At:        now,
			NewEndsAt: updated.EndsAt,
		})
	}

	receipt := receiptFor(updated, bidderID)
	receipt.Accepted = true
	receipt.BidID = incoming.BidID
	return receipt, evs, nil
}

// applyAutoExtend pushes endsAt to now+window when a qualifying bid lands
// inside the anti-sniping window. Extensions are unbounded: every qualifying
// late bid re-extends.
func applyAutoExtend(a *models.Auction, now time.Time) bool {
	if !a.AutoExtend || a.EndsAt == nil || a.AutoExtendMinutes < 1 {
		return false
	}
	window := time.Duration(a.AutoExtendMinutes) * time.Minute
	if a.EndsAt.Sub(now) >= window {
		return false
	}
	newEnd := now.Add(window)
	a.EndsAt = &newEnd
	return true
}

// Cancel transitions any non-terminal auction to cancelled. Idempotent:
// cancelling an already-terminal auction returns its current state.
func (e *Engine) Cancel(ctx context.Context, auctionID, actorID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("engine: %w - missing auctionID", auctionerrors.ErrInvalidBid)
	}

	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		a, err := e.store.GetAuction(ctx, auctionID)
		if err != nil {
			return models.Auction{}, fmt.Errorf("engine: %w", err)
		}
		if a.Status.Terminal() {
			return a, nil
		}

		now := e.now()
		expected := a.Version
		a.Status = models.StatusCancelled
		a.UpdatedAt = now

		updated, err := e.store.UpdateAuction(ctx, a, expected, nil, "")
		if errors.Is(err, auctionerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return models.Auction{}, fmt.Errorf("engine: %w", err)
		}

		e.pub.Publish(endedEvent(updated, now))
		utils.Info("auction cancelled", map[string]any{
			"auction_id": auctionID,
			"actor_id":   actorID,
		})
		return updated, nil
	}

	return models.Auction{}, fmt.Errorf("cancel auction %s: retry budget exhausted: %w", auctionID, auctionerrors.ErrConflict)
}

// EndEarly finalizes an active auction before its end time. Idempotent on
// terminal auctions; any other non-active state is an invalid transition.
func (e *Engine) EndEarly(ctx context.Context, auctionID, actorID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("engine: %w - missing auctionID", auctionerrors.ErrInvalidBid)
	}

	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		a, err := e.store.GetAuction(ctx, auctionID)
		if err != nil {
			return models.Auction{}, fmt.Errorf("engine: %w", err)
		}
		if a.Status.Terminal() {
			return a, nil
		}
		if a.Status != models.StatusActive {
			return models.Auction{}, fmt.Errorf("end auction %s early: status is %s: %w",
				auctionID, a.Status, auctionerrors.ErrInvalidTransition)
		}

		updated, err := e.finalizeOnce(ctx, a)
		if errors.Is(err, auctionerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return models.Auction{}, err
		}
		utils.Info("auction ended early", map[string]any{
			"auction_id": auctionID,
			"actor_id":   actorID,
			"status":     string(updated.Status),
		})
		return updated, nil
	}

	return models.Auction{}, fmt.Errorf("end auction %s early: retry budget exhausted: %w", auctionID, auctionerrors.ErrConflict)
}

// finalizeOnce resolves the terminal status and commits it. Caller holds the
// per-auction lock and owns conflict retries.
// Resolution: no bids -> ended; reserve met -> sold with outcome fields;
// otherwise unsold.
func (e *Engine) finalizeOnce(ctx context.Context, a models.Auction) (models.Auction, error) {
	now := e.now()
	expected := a.Version

	switch {
	case a.BidCount == 0:
		a.Status = models.StatusEnded
	case a.ReserveMet:
		a.Status = models.StatusSold
		a.WinnerID = a.CurrentBidderID
		if a.CurrentBid != nil {
			wb := *a.CurrentBid
			a.WinningBid = &wb
		}
		soldAt := now
		a.SoldAt = &soldAt
	default:
		a.Status = models.StatusUnsold
	}
	a.UpdatedAt = now

	updated, err := e.store.UpdateAuction(ctx, a, expected, nil, "")
	if err != nil {
		if errors.Is(err, auctionerrors.ErrConflict) {
			return models.Auction{}, err
		}
		return models.Auction{}, fmt.Errorf("engine: %w", err)
	}

	e.pub.Publish(endedEvent(updated, now))
	return updated, nil
}

// FinalizeDue applies every due lifecycle transition: scheduled auctions past
// their start time go active, active auctions past their end time finalize.
// Per-auction failures are logged and retried on the next tick; the first
// error is returned for the caller's accounting.
func (e *Engine) FinalizeDue(ctx context.Context, now time.Time) error {
	due, err := e.store.DueAuctions(ctx, now)
	if err != nil {
		return fmt.Errorf("engine: failed to scan due auctions: %w", err)
	}

	var firstErr error
	for _, d := range due {
		if err := e.transitionDue(ctx, d.AuctionID, now); err != nil {
			utils.Error("lifecycle transition failed", map[string]any{
				"auction_id": d.AuctionID,
				"error":      err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Engine) transitionDue(ctx context.Context, auctionID string, now time.Time) error {
	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		a, err := e.store.GetAuction(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}

		switch a.Status {
		case models.StatusScheduled:
			if a.StartsAt == nil || now.Before(*a.StartsAt) {
				return nil
			}
			expected := a.Version
			a.Status = models.StatusActive
			a.UpdatedAt = now
			if _, err := e.store.UpdateAuction(ctx, a, expected, nil, ""); err != nil {
				if errors.Is(err, auctionerrors.ErrConflict) {
					continue
				}
				return fmt.Errorf("engine: %w", err)
			}
			utils.Info("auction activated", map[string]any{"auction_id": auctionID})
			return nil

		case models.StatusActive:
			// Re-check under the lock: a bid committed after the due
			// scan may have extended endsAt.
			if a.EndsAt == nil || now.Before(*a.EndsAt) {
				return nil
			}
			_, err := e.finalizeOnce(ctx, a)
			if errors.Is(err, auctionerrors.ErrConflict) {
				continue
			}
			if err == nil {
				utils.Info("auction finalized", map[string]any{"auction_id": auctionID})
			}
			return err

		default:
			// Already terminal, or not yet published.
			return nil
		}
	}

	return fmt.Errorf("transition auction %s: retry budget exhausted: %w", auctionID, auctionerrors.ErrConflict)
}

func endedEvent(a models.Auction, now time.Time) events.Event {
	return events.Event{
		Type:       events.TypeEnded,
		AuctionID:  a.AuctionID,
		At:         now,
		Status:     string(a.Status),
		WinnerID:   a.WinnerID,
		WinningBid: a.WinningBid,
	}
}

func receiptFor(a models.Auction, bidderID string) BidReceipt {
	return BidReceipt{
		CurrentBid:      a.CurrentBid,
		CurrentBidderID: a.CurrentBidderID,
		BidCount:        a.BidCount,
		ReserveMet:      a.ReserveMet,
		IsWinning:       bidderID != "" && a.CurrentBidderID == bidderID,
		EndsAt:          a.EndsAt,
	}
}
