package engine

import (
	"context"
	"fmt"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/models"
)

// Read-side passthroughs. These go straight to the store: reads never need
// the per-auction serialization point.

// GetAuction returns the auction's current state.
func (e *Engine) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("engine: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	a, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("engine: failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// GetBidsForAuction returns the auction's full bid history in submission order.
func (e *Engine) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("engine: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	bids, err := e.store.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the bid currently leading the auction.
func (e *Engine) GetWinningBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("engine: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	bid, err := e.store.GetWinningBid(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("engine: failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// GetAuctionsByBidder returns all auctions the bidder has bid on.
func (e *Engine) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]models.Auction, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("engine: %w - empty bidder ID", auctionerrors.ErrInvalidBid)
	}
	auctions, err := e.store.GetAuctionsByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to get auctions for bidder %s: %w", bidderID, err)
	}
	return auctions, nil
}
