package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/engine"
	model "auction-engine/internal/models"
	"auction-engine/internal/watch"
	"auction-engine/services/auction/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AuctionServiceInterface interface {
	SubmitBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal, maxBid *decimal.Decimal) (engine.BidReceipt, error)
	Cancel(ctx context.Context, auctionID, actorID string) (model.Auction, error)
	EndEarly(ctx context.Context, auctionID, actorID string) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
	watches *watch.Registry
}

func NewAuctionHandler(service AuctionServiceInterface, watches *watch.Registry) *AuctionHandler {
	return &AuctionHandler{service: service, watches: watches}
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	receipt, err := h.service.SubmitBid(c.Request.Context(), auctionID, req.BidderID, req.Amount, req.MaxBid)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		if helpers.IsRejection(err) {
			// Rejections still carry the auction's current state so the
			// client can correct and resubmit without another read.
			resp := toReceiptResponse(receipt)
			resp.Reason = helpers.RejectionReason(err)
			utils.JSONRejection(c, status, resp.Reason, resp, message)
		} else {
			utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		}
		utils.Warn("PlaceBidHandler: bid rejected", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, toReceiptResponse(receipt), "bid accepted")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     receipt.BidID,
		"bidder_id":  req.BidderID,
		"is_winning": receipt.IsWinning,
	})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	h.lifecycleAction(c, "CancelAuctionHandler", h.service.Cancel)
}

// EndAuctionHandler handles POST /auctions/:auction_id/end
func (h *AuctionHandler) EndAuctionHandler(c *gin.Context) {
	h.lifecycleAction(c, "EndAuctionHandler", h.service.EndEarly)
}

func (h *AuctionHandler) lifecycleAction(c *gin.Context, handlerName string, action func(context.Context, string, string) (model.Auction, error)) {
	auctionID := c.Param("auction_id")

	var req helpers.LifecycleActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, handlerName, err)
		return
	}

	a, err := action(c.Request.Context(), auctionID, req.ActorID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn(handlerName+": action failed", map[string]any{
			"auction_id": auctionID,
			"actor_id":   req.ActorID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionStatusResponse(a), "auction state updated")
	helpers.LogSuccess(handlerName, "auction state updated", map[string]any{
		"auction_id": auctionID,
		"actor_id":   req.ActorID,
		"status":     string(a.Status),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	a, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionStatusResponse(a), "auction retrieved successfully")
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.ToBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *AuctionHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bid, err := h.service.GetWinningBid(c.Request.Context(), auctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"auction_id": auctionID})
			return
		}
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetWinningBidHandler: winning bid error", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "winning bid retrieved successfully")
}

// GetAuctionsByBidderHandler handles GET /bidders/:bidder_id/auctions
func (h *AuctionHandler) GetAuctionsByBidderHandler(c *gin.Context) {
	bidderID := c.Param("bidder_id")

	auctions, err := h.service.GetAuctionsByBidder(c.Request.Context(), bidderID)
	if err != nil && !errors.Is(err, auctionerrors.ErrBidderNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionsByBidderHandler: error retrieving auctions", map[string]any{"bidder_id": bidderID, "error": err.Error()})
		return
	}

	resp := make([]helpers.AuctionStatusResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, helpers.ToAuctionStatusResponse(a))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// WatchHandler handles PUT /auctions/:auction_id/watchers/:user_id
func (h *AuctionHandler) WatchHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID := c.Param("user_id")

	var req helpers.WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "WatchHandler", err)
		return
	}

	h.watches.Watch(model.Watcher{
		AuctionID:  auctionID,
		UserID:     userID,
		OnBid:      req.OnBid,
		OnExtended: req.OnExtended,
		OnEnded:    req.OnEnded,
	})

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "user_id": userID}, "watcher registered")
}

// UnwatchHandler handles DELETE /auctions/:auction_id/watchers/:user_id
func (h *AuctionHandler) UnwatchHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID := c.Param("user_id")

	h.watches.Unwatch(auctionID, userID)

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "user_id": userID}, "watcher removed")
}

func toReceiptResponse(r engine.BidReceipt) helpers.BidReceiptResponse {
	return helpers.BidReceiptResponse{
		Accepted:        r.Accepted,
		BidID:           r.BidID,
		CurrentBid:      helpers.FormatDecimal(r.CurrentBid),
		CurrentBidderID: r.CurrentBidderID,
		BidCount:        r.BidCount,
		ReserveMet:      r.ReserveMet,
		IsWinning:       r.IsWinning,
		EndsAt:          helpers.FormatTime(r.EndsAt),
		MinimumBid:      helpers.FormatDecimal(r.MinimumBid),
	}
}
