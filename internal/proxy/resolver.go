package proxy

import (
	"auction-engine/internal/models"
	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

// Outcome is the result of resolving an incoming bid against the current
// leader. Rows holds every bid row to persist, in order (the incoming bid
// first, then a synthetic proxy counter-bid when the incumbent defends).
type Outcome struct {
	Rows            []models.Bid
	WinningBidID    string
	CurrentBid      decimal.Decimal
	CurrentBidderID string
	LeadChanged     bool // the incoming bidder took the lead
	CeilingRaised   bool // the standing leader raised their own ceiling
}

// Resolve applies second-price-style proxy bidding: ceilings are compared,
// the higher ceiling wins the lead, and the winner's visible amount is pushed
// to one increment over the loser's ceiling (capped at the winner's own
// ceiling). Equal ceilings favor the incumbent, who bid earlier. Stateless;
// the caller persists Rows and the auction update atomically.
func Resolve(a models.Auction, leader *models.Bid, incoming models.Bid) Outcome {
	if leader == nil {
		// First bid: leads at its proposed amount.
		incoming.IsWinning = true
		return Outcome{
			Rows:            []models.Bid{incoming},
			WinningBidID:    incoming.BidID,
			CurrentBid:      incoming.Amount,
			CurrentBidderID: incoming.BidderID,
			LeadChanged:     true,
		}
	}

	visible := leader.Amount
	if a.CurrentBid != nil {
		visible = *a.CurrentBid
	}

	if incoming.BidderID == leader.BidderID {
		return resolveCeilingRaise(*leader, incoming, visible)
	}

	newCeil := incoming.Ceiling()
	leadCeil := leader.Ceiling()

	if newCeil.GreaterThan(leadCeil) {
		// Incoming bid takes the lead at one increment over the
		// incumbent's ceiling, capped at its own ceiling.
		newVisible := decimal.Min(newCeil, leadCeil.Add(a.MinimumIncrement))
		incoming.Amount, incoming.MaxBid = withCeiling(newVisible, newCeil)
		incoming.IsWinning = true
		return Outcome{
			Rows:            []models.Bid{incoming},
			WinningBidID:    incoming.BidID,
			CurrentBid:      newVisible,
			CurrentBidderID: incoming.BidderID,
			LeadChanged:     true,
		}
	}

	// Incumbent defends: equal ceilings resolve to the earlier bid. The
	// counter-bid is recorded as a synthetic row attributed to the
	// incumbent so the price history stays auditable.
	newVisible := decimal.Min(leadCeil, newCeil.Add(a.MinimumIncrement))
	incoming.IsWinning = false
	rows := []models.Bid{incoming}
	winningBidID := leader.BidID

	if newVisible.GreaterThan(visible) {
		counter := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: a.AuctionID,
			BidderID:  leader.BidderID,
			IsWinning: true,
			CreatedAt: incoming.CreatedAt,
		}
		counter.Amount, counter.MaxBid = withCeiling(newVisible, leadCeil)
		rows = append(rows, counter)
		winningBidID = counter.BidID
	} else {
		newVisible = visible
	}

	return Outcome{
		Rows:            rows,
		WinningBidID:    winningBidID,
		CurrentBid:      newVisible,
		CurrentBidderID: leader.BidderID,
	}
}

// resolveCeilingRaise handles the leader re-bidding against themselves: the
// visible price never moves without a competing bidder, but the new row is
// persisted and takes over the winning flag so it carries the raised ceiling.
func resolveCeilingRaise(leader, incoming models.Bid, visible decimal.Decimal) Outcome {
	oldCeil := leader.Ceiling()
	newCeil := decimal.Max(oldCeil, incoming.Ceiling())

	incoming.Amount, incoming.MaxBid = withCeiling(visible, newCeil)
	incoming.IsWinning = true

	return Outcome{
		Rows:            []models.Bid{incoming},
		WinningBidID:    incoming.BidID,
		CurrentBid:      visible,
		CurrentBidderID: leader.BidderID,
		CeilingRaised:   newCeil.GreaterThan(oldCeil),
	}
}

// withCeiling returns the persisted (amount, maxBid) pair for a row whose
// visible amount may sit below its effective ceiling.
func withCeiling(visible, ceiling decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	if ceiling.GreaterThan(visible) {
		return visible, &ceiling
	}
	return visible, nil
}
