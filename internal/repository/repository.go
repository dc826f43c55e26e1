package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
)

// AuctionStore is the transactional auction/bid storage interface.
// UpdateAuction is a compare-and-swap: the write only lands when the stored
// version still matches expectedVersion, otherwise ErrConflict. The auction
// update and the supplied bid rows commit atomically, so a failed write never
// leaves the auction naming a bid that was not persisted. Lifecycle-only
// updates pass no rows.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	UpdateAuction(ctx context.Context, a model.Auction, expectedVersion int64, rows []model.Bid, winningBidID string) (model.Auction, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
	DueAuctions(ctx context.Context, now time.Time) ([]model.Auction, error)
}

// MemoryStore is a concurrency-safe in-memory implementation of AuctionStore.
// The default backend, and the one every test runs against.
type MemoryStore struct {
	mu          sync.RWMutex
	auctions    map[string]model.Auction  // key: auctionID
	bids        map[string][]model.Bid    // key: auctionID -> append-only rows
	bidAuctions map[string]map[string]bool // key: bidderID -> set of auctionIDs bid on
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions:    make(map[string]model.Auction),
		bids:        make(map[string][]model.Bid),
		bidAuctions: make(map[string]map[string]bool),
	}
}

// CreateAuction inserts a new auction at version 1.
func (s *MemoryStore) CreateAuction(_ context.Context, a model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[a.AuctionID]; exists {
		return fmt.Errorf("create auction %s: auction already exists", a.AuctionID)
	}
	a.Version = 1
	s.auctions[a.AuctionID] = a.Clone()
	return nil
}

// GetAuction returns a deep copy of the auction.
func (s *MemoryStore) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a.Clone(), nil
}

// UpdateAuction applies the write only if the stored version still equals
// expectedVersion, and bumps the version on success. When rows are supplied
// they land under the same lock hold as the auction write: the rows are
// appended and the winning flag flipped so exactly the row with winningBidID
// has isWinning=true afterward. On a version mismatch nothing changes.
func (s *MemoryStore) UpdateAuction(_ context.Context, a model.Auction, expectedVersion int64, rows []model.Bid, winningBidID string) (model.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.auctions[a.AuctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("update auction %s: %w", a.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if stored.Version != expectedVersion {
		return model.Auction{}, fmt.Errorf("update auction %s: stored version %d != expected %d: %w",
			a.AuctionID, stored.Version, expectedVersion, auctionerrors.ErrConflict)
	}

	a.Version = expectedVersion + 1
	s.auctions[a.AuctionID] = a.Clone()

	if len(rows) > 0 {
		for i := range s.bids[a.AuctionID] {
			s.bids[a.AuctionID][i].IsWinning = false
		}
		for _, row := range rows {
			row.IsWinning = row.BidID == winningBidID
			s.bids[a.AuctionID] = append(s.bids[a.AuctionID], row.Clone())

			if s.bidAuctions[row.BidderID] == nil {
				s.bidAuctions[row.BidderID] = make(map[string]bool)
			}
			s.bidAuctions[row.BidderID][a.AuctionID] = true
		}
		for i := range s.bids[a.AuctionID] {
			if s.bids[a.AuctionID][i].BidID == winningBidID {
				s.bids[a.AuctionID][i].IsWinning = true
			}
		}
	}
	return a.Clone(), nil
}

// GetBidsByAuction returns all bids for an auction in submission order.
func (s *MemoryStore) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.bids[auctionID]
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	out := make([]model.Bid, 0, len(rows))
	for _, b := range rows {
		out = append(out, b.Clone())
	}
	return out, nil
}

// GetWinningBid returns the single bid currently flagged as winning.
func (s *MemoryStore) GetWinningBid(_ context.Context, auctionID string) (model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bids[auctionID] {
		if b.IsWinning {
			return b.Clone(), nil
		}
	}
	return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
}

// GetAuctionsByBidder returns all auctions a bidder has bid on.
func (s *MemoryStore) GetAuctionsByBidder(_ context.Context, bidderID string) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.bidAuctions[bidderID]
	if !ok || len(ids) == 0 {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidderID, auctionerrors.ErrBidderNoBids)
	}
	out := make([]model.Auction, 0, len(ids))
	for id := range ids {
		if a, exists := s.auctions[id]; exists {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// DueAuctions returns auctions due for a lifecycle transition: scheduled ones
// whose start time has passed and active ones whose end time has passed.
func (s *MemoryStore) DueAuctions(_ context.Context, now time.Time) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []model.Auction
	for _, a := range s.auctions {
		switch a.Status {
		case model.StatusScheduled:
			if a.StartsAt != nil && !now.Before(*a.StartsAt) {
				due = append(due, a.Clone())
			}
		case model.StatusActive:
			if a.EndsAt != nil && !now.Before(*a.EndsAt) {
				due = append(due, a.Clone())
			}
		}
	}
	return due, nil
}
