package main

import (
	"fmt"
	"net/http"

	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// stockMovementReportHandler exports the movement audit log as XLSX.
// Accepts the same filters as the JSON listing.
func stockMovementReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "stockMovementReport")
		defer span.End()

		filter := models.StockMovementFilter{
			ProductId:    queryInt(c, "product_id"),
			MovementType: models.MovementType(c.Query("movement_type")),
			Reference:    c.Query("reference"),
			Limit:        queryInt(c, "limit"),
		}
		movements, err := models.ListStockMovements(ctx, filter)
		if err != nil {
			respondError(c, err)
			return
		}

		f := excelize.NewFile()
		if _, err := f.NewSheet("Sheet1"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
			return
		}

		f.SetCellValue("Sheet1", "A1", "Id")
		f.SetCellValue("Sheet1", "B1", "ProductId")
		f.SetCellValue("Sheet1", "C1", "VariantId")
		f.SetCellValue("Sheet1", "D1", "MovementType")
		f.SetCellValue("Sheet1", "E1", "PreviousQuantity")
		f.SetCellValue("Sheet1", "F1", "NewQuantity")
		f.SetCellValue("Sheet1", "G1", "PreviousWeight")
		f.SetCellValue("Sheet1", "H1", "NewWeight")
		f.SetCellValue("Sheet1", "I1", "Reason")
		f.SetCellValue("Sheet1", "J1", "Reference")
		f.SetCellValue("Sheet1", "K1", "CreatedAt")

		for i, m := range movements {
			row := fmt.Sprint(i + 2)
			f.SetCellValue("Sheet1", "A"+row, m.ID)
			f.SetCellValue("Sheet1", "B"+row, m.ProductId)
			if m.VariantId != nil {
				f.SetCellValue("Sheet1", "C"+row, *m.VariantId)
			}
			f.SetCellValue("Sheet1", "D"+row, string(m.MovementType))
			f.SetCellValue("Sheet1", "E"+row, m.PreviousQuantity.String())
			f.SetCellValue("Sheet1", "F"+row, m.NewQuantity.String())
			f.SetCellValue("Sheet1", "G"+row, m.PreviousWeight.String())
			f.SetCellValue("Sheet1", "H"+row, m.NewWeight.String())
			f.SetCellValue("Sheet1", "I"+row, m.Reason)
			f.SetCellValue("Sheet1", "J"+row, m.Reference)
			f.SetCellValue("Sheet1", "K"+row, m.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=stock-movements.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}
