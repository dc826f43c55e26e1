package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-engine/internal/config"
	"auction-engine/internal/engine"
	"auction-engine/internal/events"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/internal/watch"
	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to initialize auction store", map[string]any{"error": err.Error()})
	}

	hub := events.NewHub()
	publisher := buildPublisher(cfg, hub)

	eng := engine.NewEngine(store, publisher)
	eng.SetMaxRetries(cfg.EngineMaxRetries)

	sched := scheduler.NewScheduler(eng, cfg.SchedulerInterval)
	go sched.Run(ctx)

	watches := watch.NewRegistry()
	router := server.SetupRouter(eng, watches, hub)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	utils.Info("starting auction server", map[string]any{
		"addr":    addr,
		"backend": cfg.StoreBackend,
	})
	if err := router.Run(addr); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (repository.AuctionStore, error) {
	if cfg.StoreBackend == "postgres" {
		return repository.NewPostgresStore(ctx, cfg.PostgresURL)
	}

	store := repository.NewMemoryStore()
	prepopulateAuctions(ctx, store)
	return store, nil
}

func buildPublisher(cfg *config.Config, hub *events.Hub) events.Publisher {
	if cfg.RedisAddr == "" {
		return hub
	}

	client, err := events.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		utils.Warn("redis unavailable, falling back to in-process event hub", map[string]any{"error": err.Error()})
		return hub
	}
	return events.Fanout{hub, events.NewRedisPublisher(client)}
}

// prepopulateAuctions seeds sample auctions into the in-memory store so the
// server is immediately usable for local development.
func prepopulateAuctions(ctx context.Context, store *repository.MemoryStore) {
	now := time.Now().UTC()
	reserve := decimal.NewFromInt(500)

	auctions := []model.Auction{
		{
			AuctionID:         "auction1",
			Title:             "Vintage watch",
			SellerID:          "seller1",
			Type:              model.TypeNoReserve,
			StartingPrice:     decimal.NewFromInt(100),
			MinimumIncrement:  decimal.NewFromInt(5),
			Status:            model.StatusActive,
			StartsAt:          timePtr(now.Add(-time.Hour)),
			EndsAt:            timePtr(now.Add(24 * time.Hour)),
			AutoExtend:        true,
			AutoExtendMinutes: 5,
			ReserveMet:        true,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			AuctionID:         "auction2",
			Title:             "Oil painting",
			SellerID:          "seller1",
			Type:              model.TypeReserve,
			StartingPrice:     decimal.NewFromInt(200),
			ReservePrice:      &reserve,
			MinimumIncrement:  decimal.NewFromInt(10),
			Status:            model.StatusActive,
			StartsAt:          timePtr(now.Add(-time.Hour)),
			EndsAt:            timePtr(now.Add(48 * time.Hour)),
			AutoExtend:        true,
			AutoExtendMinutes: 5,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			AuctionID:        "auction3",
			Title:            "Signed first edition",
			SellerID:         "seller2",
			Type:             model.TypeNoReserve,
			StartingPrice:    decimal.NewFromInt(150),
			MinimumIncrement: decimal.NewFromInt(5),
			Status:           model.StatusScheduled,
			StartsAt:         timePtr(now.Add(time.Hour)),
			EndsAt:           timePtr(now.Add(72 * time.Hour)),
			ReserveMet:       true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	for _, a := range auctions {
		if err := store.CreateAuction(ctx, a); err != nil {
			utils.Warn("failed to seed auction", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
