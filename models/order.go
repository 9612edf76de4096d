package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

type Order struct {
	ID                   string          `gorm:"primary_key;size:36" json:"id"`
	OrderNumber          string          `gorm:"uniqueIndex;size:50;not null" json:"order_number"`
	UserId               string          `gorm:"size:36;index" json:"user_id"`
	CustomerEmail        string          `gorm:"size:255;not null" json:"customer_email"`
	CustomerName         string          `gorm:"size:255" json:"customer_name"`
	Status               OrderStatus     `gorm:"type:enum('pending','confirmed','processing','shipped','delivered','completed','cancelled');default:pending" json:"status"`
	PaymentStatus        PaymentStatus   `gorm:"type:enum('pending','paid','failed','refunded');default:pending" json:"payment_status"`
	DeliveryStatus       DeliveryStatus  `gorm:"type:enum('pending','assigned','picked_up','delivered');default:pending" json:"delivery_status"`
	OrderType            OrderType       `gorm:"type:enum('delivery','pickup');default:delivery" json:"order_type"`
	PickupLocationId     int             `json:"pickup_location_id"`
	AssignedDriverId     *int            `gorm:"index" json:"assigned_driver_id"`
	ShippingAddress      string          `gorm:"size:500" json:"shipping_address"`
	ShippingCity         string          `gorm:"size:100" json:"shipping_city"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxAmount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	ShippingAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_amount"`
	DiscountAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	PointsDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"points_discount_amount"`
	CouponDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"coupon_discount_amount"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PointsToRedeem       int64           `gorm:"default:0" json:"points_to_redeem"`
	Notes                string          `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items                []OrderItem     `gorm:"foreignKey:OrderId" json:"items"`
}

// OrderItem is an immutable line snapshot: name, sku and prices are
// captured at sale time and never re-read from the catalog.
type OrderItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrderId        string          `gorm:"size:36;index;not null" json:"order_id"`
	ProductId      int             `gorm:"index;not null" json:"product_id"`
	VariantId      *int            `json:"variant_id"`
	ProductName    string          `gorm:"size:255" json:"product_name"`
	VariantTitle   string          `gorm:"size:255" json:"variant_title"`
	Sku            string          `gorm:"size:100" json:"sku"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	WeightQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight_quantity"`
	Price          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	CostPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	Addons         OrderItemAddons `gorm:"type:json" json:"addons"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type OrderItemAddon struct {
	AddonId  int             `json:"addon_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type OrderItemAddons []OrderItemAddon

func (a OrderItemAddons) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *OrderItemAddons) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into OrderItemAddons", value)
	}
	return json.Unmarshal(b, a)
}

type NewOrderItem struct {
	ProductId      int              `json:"product_id" binding:"required"`
	VariantId      *int             `json:"variant_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	WeightQuantity decimal.Decimal  `json:"weight_quantity"`
	Price          *decimal.Decimal `json:"price"`
	Addons         OrderItemAddons  `json:"addons"`
}

type NewOrder struct {
	UserId               string          `json:"user_id"`
	CustomerEmail        string          `json:"customer_email"`
	CustomerName         string          `json:"customer_name"`
	OrderType            OrderType       `json:"order_type"`
	PickupLocationId     int             `json:"pickup_location_id"`
	ShippingAddress      string          `json:"shipping_address"`
	ShippingCity         string          `json:"shipping_city"`
	Status               OrderStatus     `json:"status"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	ShippingAmount       decimal.Decimal `json:"shipping_amount"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	CouponDiscountAmount decimal.Decimal `json:"coupon_discount_amount"`
	PointsDiscountAmount decimal.Decimal `json:"points_discount_amount"`
	PointsToRedeem       int64           `json:"points_to_redeem"`
	Notes                string          `json:"notes"`
	Items                []NewOrderItem  `json:"items"`
}

type UpdateOrderInput struct {
	Status               *OrderStatus     `json:"status"`
	PaymentStatus        *PaymentStatus   `json:"payment_status"`
	DeliveryStatus       *DeliveryStatus  `json:"delivery_status"`
	ShippingAmount       *decimal.Decimal `json:"shipping_amount"`
	DiscountAmount       *decimal.Decimal `json:"discount_amount"`
	PointsDiscountAmount *decimal.Decimal `json:"points_discount_amount"`
	CouponDiscountAmount *decimal.Decimal `json:"coupon_discount_amount"`
	PointsToRedeem       *int64           `json:"points_to_redeem"`
	Notes                *string          `json:"notes"`
}

// discountCoincidenceTolerance: manual and points discounts that agree
// within this margin are treated as the same legacy discount recorded
// twice, and only counted once (the larger side wins).
var discountCoincidenceTolerance = decimal.NewFromFloat(0.01)

// CalculateOrderTotal applies the order total invariant:
// total = subtotal - coupon - combined(manual, points) + tax + shipping,
// clamped at zero.
func CalculateOrderTotal(subtotal, couponDiscount, manualDiscount, pointsDiscount, taxAmount, shippingAmount decimal.Decimal) decimal.Decimal {
	combined := manualDiscount.Add(pointsDiscount)
	if manualDiscount.Sub(pointsDiscount).Abs().LessThanOrEqual(discountCoincidenceTolerance) {
		combined = decimal.Max(manualDiscount, pointsDiscount)
	}

	total := subtotal.Sub(couponDiscount).Sub(combined).Add(taxAmount).Add(shippingAmount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// movementAmount picks the active-side quantity for a line: grams for
// weight-managed snapshots, pieces otherwise.
func movementAmount(item OrderItem) decimal.Decimal {
	if item.WeightQuantity.IsPositive() {
		return item.WeightQuantity
	}
	return item.Quantity
}

func (input *NewOrder) validate() error {
	if input.CustomerEmail == "" {
		return errors.New("customer email is required")
	}
	if !utils.IsValidEmail(input.CustomerEmail) {
		return errors.New("customer email is invalid")
	}
	if len(input.Items) == 0 {
		return errors.New("order must contain at least one item")
	}
	if input.Status != "" && !input.Status.Valid() {
		return fmt.Errorf("invalid order status %q", input.Status)
	}
	for i, item := range input.Items {
		if item.Quantity.IsZero() && item.WeightQuantity.IsZero() {
			return fmt.Errorf("item %d has no quantity", i+1)
		}
		if item.Quantity.IsNegative() || item.WeightQuantity.IsNegative() {
			return fmt.Errorf("item %d has a negative quantity", i+1)
		}
	}
	return nil
}

// buildOrderItem snapshots the catalog line. Cost price lookup is
// best-effort: a failure is logged, never fatal to the order.
func buildOrderItem(ctx context.Context, input NewOrderItem) (OrderItem, error) {
	logger := config.GetLogger()

	product, err := utils.FetchModel[Product](ctx, input.ProductId)
	if err != nil {
		return OrderItem{}, fmt.Errorf("product %d not found", input.ProductId)
	}

	item := OrderItem{
		ProductId:   input.ProductId,
		VariantId:   input.VariantId,
		ProductName: product.Name,
		Sku:         product.Sku,
		Price:       product.Price,
		CostPrice:   product.CostPrice,
		Addons:      input.Addons,
	}

	if input.VariantId != nil {
		variant, err := utils.FetchModel[ProductVariant](ctx, *input.VariantId)
		if err != nil || variant.ProductId != input.ProductId {
			return OrderItem{}, fmt.Errorf("variant %d not found for product %d", *input.VariantId, input.ProductId)
		}
		item.VariantTitle = variant.Title
		if variant.Sku != "" {
			item.Sku = variant.Sku
		}
		item.Price = variant.Price
		item.CostPrice = variant.CostPrice
	}

	if input.Price != nil {
		item.Price = *input.Price
	}

	if product.StockManagementType == StockManagementTypeWeight {
		item.WeightQuantity = input.WeightQuantity
		if item.WeightQuantity.IsZero() {
			item.WeightQuantity = input.Quantity
		}
		// price per kilogram, stock in grams
		item.TotalPrice = item.Price.Mul(item.WeightQuantity).DivRound(decimal.NewFromInt(1000), 4)
		item.TotalCost = item.CostPrice.Mul(item.WeightQuantity).DivRound(decimal.NewFromInt(1000), 4)
	} else {
		item.Quantity = input.Quantity
		item.TotalPrice = item.Price.Mul(item.Quantity)
		item.TotalCost = item.CostPrice.Mul(item.Quantity)
	}

	for _, addon := range input.Addons {
		addonTotal := addon.Price.Mul(decimal.NewFromInt(int64(addon.Quantity)))
		item.TotalPrice = item.TotalPrice.Add(addonTotal)
	}

	if item.CostPrice.IsZero() {
		config.LogError(logger, "order.go", "buildOrderItem", "cost price missing", input, errors.New("cost price unavailable, recording zero"))
	}

	return item, nil
}

// CreateOrder inserts the order with its line snapshots and deducts
// inventory in one transaction: orders are sales, not reservations.
// Insufficient stock aborts the whole creation. Loyalty redemption and
// awarding run after commit and are best-effort.
func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := input.validate(); err != nil {
		return nil, err
	}

	stockEnabled, err := IsStockManagementEnabled(ctx)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = OrderStatusPending
	}
	orderType := input.OrderType
	if orderType == "" {
		orderType = OrderTypeDelivery
	}

	items := make([]OrderItem, 0, len(input.Items))
	var subtotal decimal.Decimal
	for _, itemInput := range input.Items {
		item, err := buildOrderItem(ctx, itemInput)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(item.TotalPrice)
		items = append(items, item)
	}

	order := Order{
		ID:                   uuid.NewString(),
		OrderNumber:          utils.GenerateOrderNumber(),
		UserId:               input.UserId,
		CustomerEmail:        input.CustomerEmail,
		CustomerName:         input.CustomerName,
		Status:               status,
		OrderType:            orderType,
		PickupLocationId:     input.PickupLocationId,
		ShippingAddress:      input.ShippingAddress,
		ShippingCity:         input.ShippingCity,
		Subtotal:             subtotal,
		TaxAmount:            input.TaxAmount,
		ShippingAmount:       input.ShippingAmount,
		DiscountAmount:       input.DiscountAmount,
		PointsDiscountAmount: input.PointsDiscountAmount,
		CouponDiscountAmount: input.CouponDiscountAmount,
		PointsToRedeem:       input.PointsToRedeem,
		Notes:                input.Notes,
		Items:                items,
	}
	order.TotalAmount = CalculateOrderTotal(
		order.Subtotal, order.CouponDiscountAmount, order.DiscountAmount,
		order.PointsDiscountAmount, order.TaxAmount, order.ShippingAmount)

	// order number collisions are resolved by regenerating and retrying
	for attempt := 0; ; attempt++ {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
				return err
			}
			if !stockEnabled {
				return nil
			}
			for _, item := range order.Items {
				lockVariant, err := inventoryLockTarget(ctx, tx, item.ProductId, item.VariantId)
				if err != nil {
					return err
				}
				if err := AcquireInventoryLock(tx, item.ProductId, lockVariant); err != nil {
					return err
				}
				_, _, err = applyMovementTx(ctx, tx, &NewStockMovement{
					ProductId:    item.ProductId,
					VariantId:    item.VariantId,
					MovementType: MovementTypeOut,
					Quantity:     movementAmount(item),
					Reason:       "Order Created - Stock Sold",
					Reference:    order.OrderNumber,
				})
				ReleaseInventoryLock(tx, item.ProductId, lockVariant)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if isDuplicateKeyErr(err) && attempt < 2 {
			order.OrderNumber = utils.GenerateOrderNumber()
			continue
		}
		return nil, err
	}

	// Loyalty side effects never fail the order; failures are logged and
	// recorded for later inspection.
	if order.UserId != "" {
		if order.PointsToRedeem > 0 {
			if _, err := RedeemPoints(ctx, order.UserId, order.ID, order.PointsToRedeem, order.PointsDiscountAmount); err != nil && !errors.Is(err, ErrorLoyaltyDisabled) {
				config.LogError(logger, "order.go", "CreateOrder", "redeem points", order.ID, err)
				RecordSideEffectFailure(ctx, "redeem_points", &order.ID, order.UserId, err, map[string]interface{}{
					"points": order.PointsToRedeem,
				})
			}
		}

		var awardErr error
		if order.Status == OrderStatusCompleted {
			_, awardErr = AwardPoints(ctx, order.UserId, order.ID, order.TotalAmount, order.Subtotal)
		} else {
			_, awardErr = AwardPendingPoints(ctx, order.UserId, order.ID, order.TotalAmount, order.Subtotal)
		}
		if awardErr != nil && !errors.Is(awardErr, ErrorLoyaltyDisabled) {
			config.LogError(logger, "order.go", "CreateOrder", "award points", order.ID, awardErr)
			RecordSideEffectFailure(ctx, "award_points", &order.ID, order.UserId, awardErr, map[string]interface{}{
				"subtotal": order.Subtotal,
				"total":    order.TotalAmount,
			})
		}
	}

	return &order, nil
}

// restoreOrderStock credits back every line's deducted amount. Runs
// inside the caller's transaction.
func restoreOrderStock(ctx context.Context, tx *gorm.DB, order *Order, reason string) error {
	for _, item := range order.Items {
		lockVariant, err := inventoryLockTarget(ctx, tx, item.ProductId, item.VariantId)
		if err != nil {
			return err
		}
		if err := AcquireInventoryLock(tx, item.ProductId, lockVariant); err != nil {
			return err
		}
		_, _, err = applyMovementTx(ctx, tx, &NewStockMovement{
			ProductId:    item.ProductId,
			VariantId:    item.VariantId,
			MovementType: MovementTypeIn,
			Quantity:     movementAmount(item),
			Reason:       reason,
			Reference:    order.OrderNumber,
		})
		ReleaseInventoryLock(tx, item.ProductId, lockVariant)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrder applies status/payment/totals/points edits. Transitioning
// into cancelled restores stock in the same transaction as the status
// write; transitioning into completed activates pending loyalty points
// (best-effort, after commit).
func UpdateOrder(ctx context.Context, id string, input *UpdateOrderInput) (*Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var order Order
	if err := db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("invalid order status %q", *input.Status)
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.Valid() {
		return nil, fmt.Errorf("invalid payment status %q", *input.PaymentStatus)
	}
	if input.DeliveryStatus != nil && !input.DeliveryStatus.Valid() {
		return nil, fmt.Errorf("invalid delivery status %q", *input.DeliveryStatus)
	}
	if input.Status != nil && order.Status == OrderStatusCompleted && *input.Status != OrderStatusCompleted {
		return nil, errors.New("completed orders cannot change status")
	}

	stockEnabled, err := IsStockManagementEnabled(ctx)
	if err != nil {
		return nil, err
	}

	previousStatus := order.Status
	previousPointsToRedeem := order.PointsToRedeem

	updates := map[string]interface{}{}
	if input.Status != nil {
		updates["Status"] = *input.Status
		order.Status = *input.Status
	}
	if input.PaymentStatus != nil {
		updates["PaymentStatus"] = *input.PaymentStatus
		order.PaymentStatus = *input.PaymentStatus
	}
	if input.DeliveryStatus != nil {
		updates["DeliveryStatus"] = *input.DeliveryStatus
		order.DeliveryStatus = *input.DeliveryStatus
	}
	if input.Notes != nil {
		updates["Notes"] = *input.Notes
		order.Notes = *input.Notes
	}
	if input.PointsToRedeem != nil {
		updates["PointsToRedeem"] = *input.PointsToRedeem
		order.PointsToRedeem = *input.PointsToRedeem
	}

	recomputeTotal := false
	if input.ShippingAmount != nil {
		updates["ShippingAmount"] = *input.ShippingAmount
		order.ShippingAmount = *input.ShippingAmount
		recomputeTotal = true
	}
	if input.DiscountAmount != nil {
		updates["DiscountAmount"] = *input.DiscountAmount
		order.DiscountAmount = *input.DiscountAmount
		recomputeTotal = true
	}
	if input.PointsDiscountAmount != nil {
		updates["PointsDiscountAmount"] = *input.PointsDiscountAmount
		order.PointsDiscountAmount = *input.PointsDiscountAmount
		recomputeTotal = true
	}
	if input.CouponDiscountAmount != nil {
		updates["CouponDiscountAmount"] = *input.CouponDiscountAmount
		order.CouponDiscountAmount = *input.CouponDiscountAmount
		recomputeTotal = true
	}
	if recomputeTotal {
		order.TotalAmount = CalculateOrderTotal(
			order.Subtotal, order.CouponDiscountAmount, order.DiscountAmount,
			order.PointsDiscountAmount, order.TaxAmount, order.ShippingAmount)
		updates["TotalAmount"] = order.TotalAmount
	}

	cancelling := input.Status != nil &&
		*input.Status == OrderStatusCancelled && previousStatus != OrderStatusCancelled
	completing := input.Status != nil &&
		*input.Status == OrderStatusCompleted && previousStatus != OrderStatusCompleted

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.WithContext(ctx).Model(&Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if cancelling && stockEnabled {
			// completion needs no inventory action: stock was already
			// deducted at creation
			if err := restoreOrderStock(ctx, tx, &order, "Order Cancelled - Stock Restored"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.UserId != "" {
		if completing {
			if _, err := ActivatePendingPoints(ctx, order.UserId, order.ID); err != nil && !errors.Is(err, ErrorLoyaltyDisabled) {
				config.LogError(logger, "order.go", "UpdateOrder", "activate points", order.ID, err)
				RecordSideEffectFailure(ctx, "activate_pending_points", &order.ID, order.UserId, err, nil)
			}
		}

		if input.PointsToRedeem != nil {
			delta := *input.PointsToRedeem - previousPointsToRedeem
			if delta > 0 {
				if _, err := RedeemPoints(ctx, order.UserId, order.ID, delta, order.PointsDiscountAmount); err != nil && !errors.Is(err, ErrorLoyaltyDisabled) {
					config.LogError(logger, "order.go", "UpdateOrder", "redeem points delta", order.ID, err)
					RecordSideEffectFailure(ctx, "redeem_points", &order.ID, order.UserId, err, map[string]interface{}{
						"delta": delta,
					})
				}
			} else if delta < 0 {
				if _, err := RefundRedeemedPoints(ctx, order.UserId, order.ID, -delta); err != nil && !errors.Is(err, ErrorLoyaltyDisabled) {
					config.LogError(logger, "order.go", "UpdateOrder", "refund points delta", order.ID, err)
					RecordSideEffectFailure(ctx, "refund_points", &order.ID, order.UserId, err, map[string]interface{}{
						"delta": delta,
					})
				}
			}
		}
	}

	var updated Order
	if err := db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// orderDeletable reports whether an order may still be removed. Once
// goods have shipped the record stays: restoring their stock would
// credit back inventory that already left the warehouse.
func orderDeletable(status OrderStatus) bool {
	switch status {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted:
		return false
	}
	return true
}

// DeleteOrder removes the order and its items, restoring inventory first
// unless the order was already cancelled (that path restored it already).
// Fulfilled orders cannot be deleted.
func DeleteOrder(ctx context.Context, id string) (*Order, error) {
	db := config.GetDB()

	var order Order
	if err := db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if !orderDeletable(order.Status) {
		return nil, fmt.Errorf("%s orders cannot be deleted", order.Status)
	}

	stockEnabled, err := IsStockManagementEnabled(ctx)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stockEnabled && order.Status != OrderStatusCancelled {
			if err := restoreOrderStock(ctx, tx, &order, "Order Deleted - Stock Restored"); err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Where("order_id = ?", id).Delete(&OrderItem{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Where("id = ?", id).Delete(&Order{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func GetOrder(ctx context.Context, id string) (*Order, error) {
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &order, nil
}

type OrderFilter struct {
	AssignedDriverId int
	Status           OrderStatus
	UserId           string
	Limit            int
	Offset           int
}

func ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Preload("Items")
	if filter.AssignedDriverId > 0 {
		q = q.Where("assigned_driver_id = ?", filter.AssignedDriverId)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserId != "" {
		q = q.Where("user_id = ?", filter.UserId)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var orders []*Order
	if err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
