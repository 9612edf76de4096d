package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func loyaltySummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		userId := c.Query("user_id")
		if userId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		summary, err := models.GetLoyaltySummary(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

type loyaltyActionRequest struct {
	Action         string          `json:"action" binding:"required"`
	UserId         string          `json:"user_id"`
	OrderId        string          `json:"order_id"`
	Points         int64           `json:"points"`
	OrderAmount    decimal.Decimal `json:"order_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Reason         string          `json:"reason"`
}

func loyaltyActionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var req loyaltyActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		ctx := c.Request.Context()

		switch req.Action {
		case "award_pending_points":
			points, err := models.AwardPendingPoints(ctx, req.UserId, req.OrderId, req.OrderAmount, req.Subtotal)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"points_awarded": points, "status": "pending"})
		case "award_points":
			points, err := models.AwardPoints(ctx, req.UserId, req.OrderId, req.OrderAmount, req.Subtotal)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"points_awarded": points, "status": "available"})
		case "activate_pending_points":
			points, err := models.ActivatePendingPoints(ctx, req.UserId, req.OrderId)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"points_activated": points})
		case "redeem_points":
			history, err := models.RedeemPoints(ctx, req.UserId, req.OrderId, req.Points, req.DiscountAmount)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, history)
		case "refund_points":
			history, err := models.RefundRedeemedPoints(ctx, req.UserId, req.OrderId, req.Points)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, history)
		case "manual_adjustment":
			if !requireAdmin(c) {
				return
			}
			adminUserId, _ := utils.GetUserIdFromContext(ctx)
			history, err := models.ManualAdjustment(ctx, req.UserId, req.Points, req.Reason, adminUserId)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, history)
		case "expire_points":
			if !requireAdmin(c) {
				return
			}
			result, err := models.ExpirePoints(ctx)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, result)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action " + req.Action})
		}
	}
}

func deleteLoyaltyHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		userId := c.Query("user_id")
		if userId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		if err := models.DeleteLoyaltyHistory(c.Request.Context(), userId); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": userId})
	}
}
