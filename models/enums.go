package models

type StockManagementType string

const (
	StockManagementTypeQuantity StockManagementType = "quantity"
	StockManagementTypeWeight   StockManagementType = "weight"
)

func (t StockManagementType) Valid() bool {
	return t == StockManagementTypeQuantity || t == StockManagementTypeWeight
}

type MovementType string

const (
	MovementTypeIn         MovementType = "in"
	MovementTypeOut        MovementType = "out"
	MovementTypeAdjustment MovementType = "adjustment"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusAssigned, DeliveryStatusPickedUp, DeliveryStatusDelivered:
		return true
	}
	return false
}

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

type PointsTransactionType string

const (
	PointsTransactionTypeEarned           PointsTransactionType = "earned"
	PointsTransactionTypeRedeemed         PointsTransactionType = "redeemed"
	PointsTransactionTypeExpired          PointsTransactionType = "expired"
	PointsTransactionTypeManualAdjustment PointsTransactionType = "manual_adjustment"
)

type PointsStatus string

const (
	PointsStatusPending   PointsStatus = "pending"
	PointsStatusAvailable PointsStatus = "available"
	PointsStatusExpired   PointsStatus = "expired"
)

type AssignmentType string

const (
	AssignmentTypeManual    AssignmentType = "manual"
	AssignmentTypeAutomatic AssignmentType = "automatic"
)

func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentTypeManual, AssignmentTypeAutomatic:
		return true
	}
	return false
}

type AssignmentChangeType string

const (
	AssignmentChangeTypeAssigned   AssignmentChangeType = "assigned"
	AssignmentChangeTypeReassigned AssignmentChangeType = "reassigned"
)

type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
)

func (s DriverStatus) Valid() bool {
	switch s {
	case DriverStatusAvailable, DriverStatusBusy, DriverStatusOffline:
		return true
	}
	return false
}
