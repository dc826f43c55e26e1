package scheduler

import (
	"context"
	"testing"
	"time"

	"auction-engine/internal/engine"
	"auction-engine/internal/events"
	"auction-engine/internal/models"
	"auction-engine/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedAuction(t *testing.T, store *repository.MemoryStore, a models.Auction) {
	t.Helper()
	require.NoError(t, store.CreateAuction(context.Background(), a))
}

func baseAuction(auctionID string, status models.AuctionStatus, startsAt, endsAt time.Time) models.Auction {
	return models.Auction{
		AuctionID:        auctionID,
		Title:            "lot " + auctionID,
		SellerID:         "seller1",
		Type:             models.TypeNoReserve,
		StartingPrice:    decimal.NewFromInt(50),
		MinimumIncrement: decimal.NewFromInt(5),
		Status:           status,
		StartsAt:         &startsAt,
		EndsAt:           &endsAt,
		ReserveMet:       true,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestTick_ActivatesDueScheduled(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	eng := engine.NewEngine(store, events.NopPublisher{})
	s := NewScheduler(eng, time.Second)

	now := time.Now().UTC()
	seedAuction(t, store, baseAuction("due", models.StatusScheduled, now.Add(-time.Minute), now.Add(time.Hour)))
	seedAuction(t, store, baseAuction("future", models.StatusScheduled, now.Add(time.Hour), now.Add(2*time.Hour)))

	s.Tick(context.Background(), now)

	a, err := store.GetAuction(context.Background(), "due")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, a.Status)

	a, err = store.GetAuction(context.Background(), "future")
	require.NoError(t, err)
	require.Equal(t, models.StatusScheduled, a.Status)
}

func TestTick_FinalizesDueActive(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	eng := engine.NewEngine(store, events.NopPublisher{})
	s := NewScheduler(eng, time.Second)

	now := time.Now().UTC()
	seedAuction(t, store, baseAuction("expired", models.StatusActive, now.Add(-2*time.Hour), now.Add(-time.Minute)))
	seedAuction(t, store, baseAuction("running", models.StatusActive, now.Add(-time.Hour), now.Add(time.Hour)))

	s.Tick(context.Background(), now)

	a, err := store.GetAuction(context.Background(), "expired")
	require.NoError(t, err)
	require.Equal(t, models.StatusEnded, a.Status)

	a, err = store.GetAuction(context.Background(), "running")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, a.Status)
}

func TestTick_SoldWhenBidsLanded(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	eng := engine.NewEngine(store, events.NopPublisher{})
	s := NewScheduler(eng, time.Second)

	now := time.Now().UTC()
	seedAuction(t, store, baseAuction("lot1", models.StatusActive, now.Add(-2*time.Hour), now.Add(time.Minute)))

	_, err := eng.SubmitBid(context.Background(), "lot1", "bidder1", decimal.NewFromInt(75), nil)
	require.NoError(t, err)

	// Nothing due yet.
	s.Tick(context.Background(), now)
	a, err := store.GetAuction(context.Background(), "lot1")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, a.Status)

	// Past endsAt the auction closes sold with the leader as winner.
	s.Tick(context.Background(), now.Add(2*time.Minute))
	a, err = store.GetAuction(context.Background(), "lot1")
	require.NoError(t, err)
	require.Equal(t, models.StatusSold, a.Status)
	require.Equal(t, "bidder1", a.WinnerID)
	require.True(t, a.WinningBid.Equal(decimal.NewFromInt(75)))
}

func TestTick_SkipsExtendedAuction(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	eng := engine.NewEngine(store, events.NopPublisher{})
	s := NewScheduler(eng, time.Second)

	now := time.Now().UTC()
	a := baseAuction("lot1", models.StatusActive, now.Add(-time.Hour), now.Add(time.Minute))
	a.AutoExtend = true
	a.AutoExtendMinutes = 5
	seedAuction(t, store, a)

	// A late bid extends endsAt past the tick time.
	_, err := eng.SubmitBid(context.Background(), "lot1", "bidder1", decimal.NewFromInt(50), nil)
	require.NoError(t, err)

	s.Tick(context.Background(), now.Add(2*time.Minute))

	got, err := store.GetAuction(context.Background(), "lot1")
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
}

func TestTick_SkipsTerminal(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	eng := engine.NewEngine(store, events.NopPublisher{})
	s := NewScheduler(eng, time.Second)

	now := time.Now().UTC()
	a := baseAuction("done", models.StatusCancelled, now.Add(-2*time.Hour), now.Add(-time.Hour))
	seedAuction(t, store, a)

	s.Tick(context.Background(), now)

	got, err := store.GetAuction(context.Background(), "done")
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, got.Status)
	require.Equal(t, int64(1), got.Version)
}
