package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auctionColumns = `auction_id, title, seller_id, type, starting_price, reserve_price,
	minimum_increment, current_bid, current_bidder_id, bid_count, status,
	starts_at, ends_at, auto_extend, auto_extend_minutes,
	winner_id, winning_bid, sold_at, reserve_met, version, created_at, updated_at`

const bidColumns = `bid_id, auction_id, bidder_id, amount, max_bid, is_winning, created_at`

// PostgresStore is a pgx-backed implementation of AuctionStore. Optimistic
// concurrency rides on the version column: UpdateAuction only lands when the
// stored version still matches.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore initializes a connection pool and ensures the schema.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auctions (
			auction_id          TEXT PRIMARY KEY,
			title               TEXT NOT NULL,
			seller_id           TEXT NOT NULL,
			type                TEXT NOT NULL,
			starting_price      NUMERIC(20,2) NOT NULL,
			reserve_price       NUMERIC(20,2),
			minimum_increment   NUMERIC(20,2) NOT NULL,
			current_bid         NUMERIC(20,2),
			current_bidder_id   TEXT NOT NULL DEFAULT '',
			bid_count           INTEGER NOT NULL DEFAULT 0,
			status              TEXT NOT NULL,
			starts_at           TIMESTAMPTZ,
			ends_at             TIMESTAMPTZ,
			auto_extend         BOOLEAN NOT NULL DEFAULT FALSE,
			auto_extend_minutes INTEGER NOT NULL DEFAULT 0,
			winner_id           TEXT NOT NULL DEFAULT '',
			winning_bid         NUMERIC(20,2),
			sold_at             TIMESTAMPTZ,
			reserve_met         BOOLEAN NOT NULL DEFAULT FALSE,
			version             BIGINT NOT NULL DEFAULT 1,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS bids (
			bid_id     TEXT PRIMARY KEY,
			auction_id TEXT NOT NULL REFERENCES auctions(auction_id) ON DELETE CASCADE,
			bidder_id  TEXT NOT NULL,
			amount     NUMERIC(20,2) NOT NULL,
			max_bid    NUMERIC(20,2),
			is_winning BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);
		CREATE INDEX IF NOT EXISTS idx_auctions_due ON auctions(status, starts_at, ends_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// CreateAuction inserts a new auction at version 1.
func (s *PostgresStore) CreateAuction(ctx context.Context, a model.Auction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auctions (`+auctionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,1,$20,$21)`,
		a.AuctionID, a.Title, a.SellerID, a.Type, a.StartingPrice, a.ReservePrice,
		a.MinimumIncrement, a.CurrentBid, a.CurrentBidderID, a.BidCount, a.Status,
		a.StartsAt, a.EndsAt, a.AutoExtend, a.AutoExtendMinutes,
		a.WinnerID, a.WinningBid, a.SoldAt, a.ReserveMet, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create auction %s: %w", a.AuctionID, err)
	}
	return nil
}

// GetAuction retrieves an auction by id.
func (s *PostgresStore) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE auction_id = $1`, auctionID)
	a, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// UpdateAuction writes the auction conditioned on the stored version still
// matching expectedVersion; ErrConflict otherwise. Bid rows, when supplied,
// are inserted and the winning flag flipped inside the same transaction as
// the conditioned update, so either everything lands or nothing does.
func (s *PostgresStore) UpdateAuction(ctx context.Context, a model.Auction, expectedVersion int64, rows []model.Bid, winningBidID string) (model.Auction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Auction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE auctions SET
			current_bid = $1, current_bidder_id = $2, bid_count = $3, status = $4,
			starts_at = $5, ends_at = $6, winner_id = $7, winning_bid = $8,
			sold_at = $9, reserve_met = $10, version = version + 1, updated_at = $11
		WHERE auction_id = $12 AND version = $13`,
		a.CurrentBid, a.CurrentBidderID, a.BidCount, a.Status,
		a.StartsAt, a.EndsAt, a.WinnerID, a.WinningBid,
		a.SoldAt, a.ReserveMet, a.UpdatedAt,
		a.AuctionID, expectedVersion)
	if err != nil {
		return model.Auction{}, fmt.Errorf("failed to update auction %s: %w", a.AuctionID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM auctions WHERE auction_id = $1)`, a.AuctionID).Scan(&exists); err != nil {
			return model.Auction{}, fmt.Errorf("failed to check auction %s: %w", a.AuctionID, err)
		}
		if !exists {
			return model.Auction{}, fmt.Errorf("update auction %s: %w", a.AuctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("update auction %s: %w", a.AuctionID, auctionerrors.ErrConflict)
	}

	if len(rows) > 0 {
		if _, err := tx.Exec(ctx, `UPDATE bids SET is_winning = FALSE WHERE auction_id = $1 AND is_winning`, a.AuctionID); err != nil {
			return model.Auction{}, fmt.Errorf("failed to clear winning flag for auction %s: %w", a.AuctionID, err)
		}
		for _, b := range rows {
			if _, err := tx.Exec(ctx, `
				INSERT INTO bids (`+bidColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				b.BidID, b.AuctionID, b.BidderID, b.Amount, b.MaxBid, b.BidID == winningBidID, b.CreatedAt); err != nil {
				return model.Auction{}, fmt.Errorf("failed to record bid %s: %w", b.BidID, err)
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE bids SET is_winning = TRUE WHERE bid_id = $1`, winningBidID); err != nil {
			return model.Auction{}, fmt.Errorf("failed to mark winning bid %s: %w", winningBidID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Auction{}, fmt.Errorf("failed to commit update for auction %s: %w", a.AuctionID, err)
	}
	a.Version = expectedVersion + 1
	return a, nil
}

// GetBidsByAuction returns all bids for an auction in submission order.
func (s *PostgresStore) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY created_at, bid_id`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.MaxBid, &b.IsWinning, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

// GetWinningBid returns the single bid currently flagged as winning.
func (s *PostgresStore) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	var b model.Bid
	err := s.pool.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 AND is_winning`, auctionID).
		Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.MaxBid, &b.IsWinning, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return b, nil
}

// GetAuctionsByBidder returns all auctions a bidder has bid on.
func (s *PostgresStore) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+auctionColumns+` FROM auctions
		WHERE auction_id IN (SELECT DISTINCT auction_id FROM bids WHERE bidder_id = $1)`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auctions for bidder %s: %w", bidderID, err)
	}
	defer rows.Close()

	auctions, err := scanAuctions(rows)
	if err != nil {
		return nil, err
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidderID, auctionerrors.ErrBidderNoBids)
	}
	return auctions, nil
}

// DueAuctions returns auctions due for a lifecycle transition.
func (s *PostgresStore) DueAuctions(ctx context.Context, now time.Time) ([]model.Auction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+auctionColumns+` FROM auctions
		WHERE (status = 'scheduled' AND starts_at <= $1)
		   OR (status = 'active' AND ends_at <= $1)`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due auctions: %w", err)
	}
	defer rows.Close()

	return scanAuctions(rows)
}

func scanAuction(row pgx.Row) (model.Auction, error) {
	var a model.Auction
	err := row.Scan(
		&a.AuctionID, &a.Title, &a.SellerID, &a.Type, &a.StartingPrice, &a.ReservePrice,
		&a.MinimumIncrement, &a.CurrentBid, &a.CurrentBidderID, &a.BidCount, &a.Status,
		&a.StartsAt, &a.EndsAt, &a.AutoExtend, &a.AutoExtendMinutes,
		&a.WinnerID, &a.WinningBid, &a.SoldAt, &a.ReserveMet, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanAuctions(rows pgx.Rows) ([]model.Auction, error) {
	var auctions []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, nil
}
