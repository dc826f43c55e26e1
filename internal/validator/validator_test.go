package validator

import (
	"errors"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func activeAuction(bidCount int, currentBid *decimal.Decimal) models.Auction {
	now := time.Now().UTC()
	startsAt := now.Add(-time.Hour)
	endsAt := now.Add(time.Hour)
	return models.Auction{
		AuctionID:        "auction1",
		Type:             models.TypeNoReserve,
		StartingPrice:    decimal.NewFromInt(100),
		MinimumIncrement: decimal.NewFromInt(5),
		CurrentBid:       currentBid,
		BidCount:         bidCount,
		Status:           models.StatusActive,
		StartsAt:         &startsAt,
		EndsAt:           &endsAt,
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	leading := dec("150")
	withLeader := activeAuction(2, &leading)
	withLeader.CurrentBidderID = "bidder1"

	tests := []struct {
		name      string
		auction   func() models.Auction
		bidderID  string
		amount    decimal.Decimal
		maxBid    *decimal.Decimal
		wantError error
	}{
		{
			name:      "first_bid_at_starting_price",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("100"),
			wantError: nil,
		},
		{
			name:      "first_bid_below_starting_price",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("99.99"),
			wantError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "subsequent_bid_at_floor",
			auction:   func() models.Auction { return withLeader },
			bidderID:  "bidder2",
			amount:    dec("155"),
			wantError: nil,
		},
		{
			name:      "subsequent_bid_below_floor",
			auction:   func() models.Auction { return withLeader },
			bidderID:  "bidder2",
			amount:    dec("152"),
			wantError: auctionerrors.ErrBidTooLow,
		},
		{
			name: "draft_auction",
			auction: func() models.Auction {
				a := activeAuction(0, nil)
				a.Status = models.StatusDraft
				return a
			},
			bidderID:  "bidder1",
			amount:    dec("100"),
			wantError: auctionerrors.ErrNotActive,
		},
		{
			name: "cancelled_auction",
			auction: func() models.Auction {
				a := activeAuction(0, nil)
				a.Status = models.StatusCancelled
				return a
			},
			bidderID:  "bidder1",
			amount:    dec("100"),
			wantError: auctionerrors.ErrNotActive,
		},
		{
			name: "past_end_time",
			auction: func() models.Auction {
				a := activeAuction(0, nil)
				endsAt := now.Add(-time.Minute)
				a.EndsAt = &endsAt
				return a
			},
			bidderID:  "bidder1",
			amount:    dec("100"),
			wantError: auctionerrors.ErrNotActive,
		},
		{
			name:      "zero_amount",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("0"),
			wantError: auctionerrors.ErrInvalidAmount,
		},
		{
			name:      "negative_amount",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("-10"),
			wantError: auctionerrors.ErrInvalidAmount,
		},
		{
			name:      "sub_cent_precision",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("100.005"),
			wantError: auctionerrors.ErrInvalidAmount,
		},
		{
			name:      "max_bid_below_amount",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("100"),
			maxBid:    decPtr("90"),
			wantError: auctionerrors.ErrInvalidMaxBid,
		},
		{
			name:      "max_bid_sub_cent_precision",
			auction:   func() models.Auction { return activeAuction(0, nil) },
			bidderID:  "bidder1",
			amount:    dec("100"),
			maxBid:    decPtr("200.005"),
			wantError: auctionerrors.ErrInvalidMaxBid,
		},
		{
			name:      "leader_raises_own_ceiling_below_floor",
			auction:   func() models.Auction { return withLeader },
			bidderID:  "bidder1",
			amount:    dec("150"),
			maxBid:    decPtr("300"),
			wantError: nil,
		},
		{
			name:      "non_leader_below_floor_with_max_bid",
			auction:   func() models.Auction { return withLeader },
			bidderID:  "bidder2",
			amount:    dec("150"),
			maxBid:    decPtr("300"),
			wantError: auctionerrors.ErrBidTooLow,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tc.auction(), tc.bidderID, tc.amount, tc.maxBid, now)
			if tc.wantError != nil {
				require.ErrorIs(t, err, tc.wantError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// A BidTooLow rejection must carry the minimum acceptable amount.
func TestValidate_FloorErrorCarriesMinimum(t *testing.T) {
	t.Parallel()

	leading := dec("150")
	a := activeAuction(3, &leading)

	err := Validate(a, "bidder2", dec("151"), nil, time.Now().UTC())
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)

	var floorErr *auctionerrors.BidFloorError
	require.True(t, errors.As(err, &floorErr))
	require.True(t, floorErr.Minimum.Equal(dec("155")), "expected floor 155, got %s", floorErr.Minimum)
}

// Each max-bid rejection names the rule that was broken.
func TestValidate_MaxBidErrorMessages(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	err := Validate(activeAuction(0, nil), "bidder1", dec("100"), decPtr("200.005"), now)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidMaxBid)
	require.ErrorContains(t, err, "at most 2 decimal places")

	err = Validate(activeAuction(0, nil), "bidder1", dec("100"), decPtr("90"), now)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidMaxBid)
	require.ErrorContains(t, err, "max bid must be >= amount")
}

func TestFloor(t *testing.T) {
	t.Parallel()

	require.True(t, Floor(activeAuction(0, nil)).Equal(dec("100")))

	leading := dec("150")
	require.True(t, Floor(activeAuction(1, &leading)).Equal(dec("155")))
}
