package main

import (
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"github.com/gin-gonic/gin"
)

func listInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		records, err := models.ListInventoryRecords(c.Request.Context(), queryInt(c, "product_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"inventory": records})
	}
}

func createStockMovementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.NewStockMovement
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		record, movement, err := models.ApplyMovement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"inventory": record, "movement": movement})
	}
}

func listStockMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		filter := models.StockMovementFilter{
			ProductId:    queryInt(c, "product_id"),
			MovementType: models.MovementType(c.Query("movement_type")),
			Reference:    c.Query("reference"),
			Limit:        queryInt(c, "limit"),
			Offset:       queryInt(c, "offset"),
		}
		if v := queryInt(c, "variant_id"); v > 0 {
			filter.VariantId = &v
		}
		movements, err := models.ListStockMovements(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"movements": movements})
	}
}

func bulkDeleteStockMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		var before *time.Time
		if v := c.Query("before"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "before must be RFC3339"})
				return
			}
			before = &t
		}
		deleted, err := models.BulkDeleteStockMovements(c.Request.Context(), queryInt(c, "product_id"), before)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}
