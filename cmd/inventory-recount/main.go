// inventory-recount audits inventory records against the movement log.
// For every record it compares the stored level with the latest
// movement's post-level and recomputes available = quantity - reserved.
// Read-only by default; pass -fix to write corrections.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/inventory-recount [-fix] [-product-id N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"gorm.io/gorm"
)

func main() {
	fix := flag.Bool("fix", false, "write corrections instead of only reporting drift")
	productID := flag.Int("product-id", 0, "limit the audit to one product")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	var records []models.InventoryRecord
	q := db.WithContext(ctx)
	if *productID > 0 {
		q = q.Where("product_id = ?", *productID)
	}
	if err := q.Find(&records).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list inventory records: %v\n", err)
		os.Exit(1)
	}

	drifted := 0
	fixed := 0
	for _, record := range records {
		var last models.StockMovement
		err := db.WithContext(ctx).
			Where("inventory_id = ?", record.ID).
			Order("id DESC").
			First(&last).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			fmt.Fprintf(os.Stderr, "failed to read movements for record %d: %v\n", record.ID, err)
			os.Exit(1)
		}

		expectedQty := last.NewQuantity
		expectedWeight := last.NewWeight
		expectedAvailableQty := expectedQty.Sub(record.ReservedQuantity)
		expectedAvailableWeight := expectedWeight.Sub(record.ReservedWeight)

		inSync := record.Quantity.Equal(expectedQty) &&
			record.WeightQuantity.Equal(expectedWeight) &&
			record.AvailableQuantity.Equal(expectedAvailableQty) &&
			record.AvailableWeight.Equal(expectedAvailableWeight)
		if inSync {
			continue
		}

		drifted++
		fmt.Printf("record %d (product %d): stored qty=%s weight=%s, movement trail says qty=%s weight=%s\n",
			record.ID, record.ProductId,
			record.Quantity.String(), record.WeightQuantity.String(),
			expectedQty.String(), expectedWeight.String())

		if !*fix {
			continue
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.AcquireInventoryLock(tx, record.ProductId, record.VariantId); err != nil {
				return err
			}
			defer models.ReleaseInventoryLock(tx, record.ProductId, record.VariantId)
			return tx.Model(&models.InventoryRecord{}).Where("id = ?", record.ID).Updates(map[string]interface{}{
				"quantity":           expectedQty,
				"weight_quantity":    expectedWeight,
				"available_quantity": expectedAvailableQty,
				"available_weight":   expectedAvailableWeight,
			}).Error
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fix record %d: %v\n", record.ID, err)
			os.Exit(1)
		}
		fixed++
	}

	fmt.Printf("audited %d records: %d drifted, %d fixed\n", len(records), drifted, fixed)
}
