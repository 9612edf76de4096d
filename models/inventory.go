package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryRecord holds current stock per (product, variant). Quantity
// columns are used for quantity-managed products, weight columns (grams)
// for weight-managed ones; the inactive side stays zero. Available is
// always recomputed as quantity - reserved on write.
type InventoryRecord struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ProductId         int             `gorm:"not null;uniqueIndex:idx_inventory_product_variant" json:"product_id"`
	VariantId         *int            `gorm:"uniqueIndex:idx_inventory_product_variant" json:"variant_id"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"available_quantity"`
	WeightQuantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight_quantity"`
	ReservedWeight    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_weight"`
	AvailableWeight   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"available_weight"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockMovement is the append-only audit mirror of every InventoryRecord
// mutation. Rows are inserted in the same transaction as the record write
// and never updated afterwards.
type StockMovement struct {
	ID               int             `gorm:"primary_key" json:"id"`
	InventoryId      int             `gorm:"index;not null" json:"inventory_id"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	VariantId        *int            `gorm:"index" json:"variant_id"`
	MovementType     MovementType    `gorm:"type:enum('in','out','adjustment');not null" json:"movement_type"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"previous_quantity"`
	NewQuantity      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"new_quantity"`
	PreviousWeight   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"previous_weight"`
	NewWeight        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"new_weight"`
	Reason           string          `gorm:"size:255" json:"reason"`
	Reference        string          `gorm:"size:100;index" json:"reference"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockMovement struct {
	ProductId    int             `json:"product_id" binding:"required"`
	VariantId    *int            `json:"variant_id"`
	MovementType MovementType    `json:"movement_type" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	Reason       string          `json:"reason"`
	Reference    string          `json:"reference"`
}

var errInsufficientStock = errors.New("insufficient stock")

// applyMovementDelta computes the post-movement level.
// in: previous + delta, out: previous - delta (never below zero),
// adjustment: delta verbatim (absolute set).
func applyMovementDelta(movementType MovementType, previous decimal.Decimal, delta decimal.Decimal) (decimal.Decimal, error) {
	switch movementType {
	case MovementTypeIn:
		return previous.Add(delta), nil
	case MovementTypeOut:
		next := previous.Sub(delta)
		if next.IsNegative() {
			return previous, errInsufficientStock
		}
		return next, nil
	case MovementTypeAdjustment:
		return delta, nil
	default:
		return previous, fmt.Errorf("invalid movement type %q", movementType)
	}
}

// collapseVariant applies the pooled-stock rule: weight-managed variable
// products keep a single product-level InventoryRecord, so their variant
// collapses to null.
func collapseVariant(product *Product, variantId *int) *int {
	if product.StockManagementType == StockManagementTypeWeight &&
		product.IsVariable != nil && *product.IsVariable {
		return nil
	}
	return variantId
}

// inventoryLockTarget resolves the variant the advisory lock must cover.
// Locking on the caller-supplied variant would let two variants of a
// weight-variable product race on the shared pooled record.
func inventoryLockTarget(ctx context.Context, tx *gorm.DB, productId int, variantId *int) (*int, error) {
	var product Product
	if err := tx.WithContext(ctx).First(&product, productId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return collapseVariant(&product, variantId), nil
}

// resolveInventoryTarget loads the product (and names the line for error
// messages) and collapses the variant for weight-managed variable
// products, which pool stock at the product level.
func resolveInventoryTarget(ctx context.Context, tx *gorm.DB, productId int, variantId *int) (*Product, *int, string, error) {
	var product Product
	if err := tx.WithContext(ctx).First(&product, productId).Error; err != nil {
		return nil, nil, "", utils.ErrorRecordNotFound
	}

	name := product.Name
	variantId = collapseVariant(&product, variantId)
	if variantId != nil {
		var variant ProductVariant
		if err := tx.WithContext(ctx).Where("product_id = ?", productId).First(&variant, *variantId).Error; err != nil {
			return nil, nil, "", utils.ErrorRecordNotFound
		}
		name = product.Name + " / " + variant.Title
	}
	return &product, variantId, name, nil
}

func inventoryScope(tx *gorm.DB, productId int, variantId *int) *gorm.DB {
	q := tx.Where("product_id = ?", productId)
	if variantId == nil {
		return q.Where("variant_id IS NULL")
	}
	return q.Where("variant_id = ?", *variantId)
}

// applyMovementTx performs one movement inside the caller's transaction.
// The caller must already hold the inventory advisory lock for the target.
func applyMovementTx(ctx context.Context, tx *gorm.DB, input *NewStockMovement) (*InventoryRecord, *StockMovement, error) {
	if !input.MovementType.Valid() {
		return nil, nil, fmt.Errorf("invalid movement type %q", input.MovementType)
	}
	if input.MovementType != MovementTypeAdjustment && input.Quantity.IsNegative() {
		return nil, nil, errors.New("movement quantity cannot be negative")
	}

	product, variantId, lineName, err := resolveInventoryTarget(ctx, tx, input.ProductId, input.VariantId)
	if err != nil {
		return nil, nil, err
	}
	byWeight := product.StockManagementType == StockManagementTypeWeight
	unit := "pcs"
	if byWeight {
		unit = "g"
	}

	var record InventoryRecord
	err = inventoryScope(tx.WithContext(ctx), input.ProductId, variantId).First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		// no record yet: outgoing movements never create negative stock
		if input.MovementType == MovementTypeOut {
			return nil, nil, &utils.OutOfStockError{ProductName: lineName}
		}
		record = InventoryRecord{ProductId: input.ProductId, VariantId: variantId}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, nil, err
		}
	}

	previousQty := record.Quantity
	previousWeight := record.WeightQuantity

	if byWeight {
		next, err := applyMovementDelta(input.MovementType, record.WeightQuantity, input.Quantity)
		if err != nil {
			if errors.Is(err, errInsufficientStock) {
				return nil, nil, &utils.InsufficientStockError{
					ProductName: lineName,
					Unit:        unit,
					Available:   record.WeightQuantity,
					Requested:   input.Quantity,
				}
			}
			return nil, nil, err
		}
		record.WeightQuantity = next
		record.AvailableWeight = next.Sub(record.ReservedWeight)
	} else {
		next, err := applyMovementDelta(input.MovementType, record.Quantity, input.Quantity)
		if err != nil {
			if errors.Is(err, errInsufficientStock) {
				return nil, nil, &utils.InsufficientStockError{
					ProductName: lineName,
					Unit:        unit,
					Available:   record.Quantity,
					Requested:   input.Quantity,
				}
			}
			return nil, nil, err
		}
		record.Quantity = next
		record.AvailableQuantity = next.Sub(record.ReservedQuantity)
	}

	if err := tx.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, nil, err
	}

	movement := StockMovement{
		InventoryId:      record.ID,
		ProductId:        input.ProductId,
		VariantId:        variantId,
		MovementType:     input.MovementType,
		PreviousQuantity: previousQty,
		NewQuantity:      record.Quantity,
		PreviousWeight:   previousWeight,
		NewWeight:        record.WeightQuantity,
		Reason:           input.Reason,
		Reference:        input.Reference,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, nil, err
	}

	return &record, &movement, nil
}

// ApplyMovement mutates stock and writes its audit movement atomically,
// serialized per (product, variant) through an advisory lock.
func ApplyMovement(ctx context.Context, input *NewStockMovement) (*InventoryRecord, *StockMovement, error) {
	db := config.GetDB()

	var record *InventoryRecord
	var movement *StockMovement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockVariant, err := inventoryLockTarget(ctx, tx, input.ProductId, input.VariantId)
		if err != nil {
			return err
		}
		if err := AcquireInventoryLock(tx, input.ProductId, lockVariant); err != nil {
			return err
		}
		defer ReleaseInventoryLock(tx, input.ProductId, lockVariant)

		record, movement, err = applyMovementTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return record, movement, nil
}

func GetInventoryRecord(ctx context.Context, productId int, variantId *int) (*InventoryRecord, error) {
	db := config.GetDB()
	var record InventoryRecord
	err := inventoryScope(db.WithContext(ctx), productId, variantId).First(&record).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &record, nil
}

func ListInventoryRecords(ctx context.Context, productId int) ([]*InventoryRecord, error) {
	db := config.GetDB()
	var records []*InventoryRecord
	q := db.WithContext(ctx)
	if productId > 0 {
		q = q.Where("product_id = ?", productId)
	}
	if err := q.Order("product_id, variant_id").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type StockMovementFilter struct {
	ProductId    int
	VariantId    *int
	MovementType MovementType
	Reference    string
	Limit        int
	Offset       int
}

func ListStockMovements(ctx context.Context, filter StockMovementFilter) ([]*StockMovement, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&StockMovement{})
	if filter.ProductId > 0 {
		q = q.Where("product_id = ?", filter.ProductId)
	}
	if filter.VariantId != nil {
		q = q.Where("variant_id = ?", *filter.VariantId)
	}
	if filter.MovementType != "" {
		q = q.Where("movement_type = ?", filter.MovementType)
	}
	if filter.Reference != "" {
		q = q.Where("reference = ?", filter.Reference)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var movements []*StockMovement
	if err := q.Order("id DESC").Limit(limit).Offset(filter.Offset).Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// BulkDeleteStockMovements removes audit rows. This breaks the movement
// trail for the affected product and is restricted to admins upstream.
func BulkDeleteStockMovements(ctx context.Context, productId int, before *time.Time) (int64, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&StockMovement{})
	if productId > 0 {
		q = q.Where("product_id = ?", productId)
	}
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	res := q.Delete(&StockMovement{})
	return res.RowsAffected, res.Error
}
