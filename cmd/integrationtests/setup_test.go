package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"auction-engine/internal/engine"
	"auction-engine/internal/events"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/internal/watch"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TestEnv bundles the pieces an integration test pokes at directly.
type TestEnv struct {
	Router *gin.Engine
	Store  *repository.MemoryStore
	Engine *engine.Engine
	Hub    *events.Hub
}

// SetupTestEnv initializes a full stack over the in-memory store, seeded
// with the given auctions.
func SetupTestEnv(t *testing.T, auctions ...model.Auction) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	for _, a := range auctions {
		if err := store.CreateAuction(context.Background(), a); err != nil {
			t.Fatalf("failed to seed auction %s: %v", a.AuctionID, err)
		}
	}

	hub := events.NewHub()
	eng := engine.NewEngine(store, hub)
	router := server.SetupRouter(eng, watch.NewRegistry(), hub)

	return &TestEnv{Router: router, Store: store, Engine: eng, Hub: hub}
}

// ExecuteRequestAndParse executes an HTTP request on the env's router and
// parses the JSON envelope.
func (env *TestEnv) ExecuteRequestAndParse(t *testing.T, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	env.Router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

func activeAuction(auctionID string, startingPrice, increment int64) model.Auction {
	now := time.Now().UTC()
	starts := now.Add(-time.Hour)
	ends := now.Add(time.Hour)
	return model.Auction{
		AuctionID:        auctionID,
		Title:            "lot " + auctionID,
		SellerID:         "seller1",
		Type:             model.TypeNoReserve,
		StartingPrice:    decimal.NewFromInt(startingPrice),
		MinimumIncrement: decimal.NewFromInt(increment),
		Status:           model.StatusActive,
		StartsAt:         &starts,
		EndsAt:           &ends,
		ReserveMet:       true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func reserveAuction(auctionID string, startingPrice, increment, reserve int64) model.Auction {
	a := activeAuction(auctionID, startingPrice, increment)
	a.Type = model.TypeReserve
	r := decimal.NewFromInt(reserve)
	a.ReservePrice = &r
	a.ReserveMet = false
	return a
}
