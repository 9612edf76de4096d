package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateOrderTotal_NoDiscounts(t *testing.T) {
	total := CalculateOrderTotal(dec("100"), decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, dec("10"))
	if !total.Equal(dec("110")) {
		t.Fatalf("expected 110, got %s", total)
	}
}

func TestCalculateOrderTotal_CoincidingDiscountsCountOnce(t *testing.T) {
	// Manual and points discounts within a cent of each other are the same
	// discount recorded twice; only the larger side applies.
	total := CalculateOrderTotal(dec("100"), decimal.Zero, dec("10"), dec("10"), decimal.Zero, decimal.Zero)
	if !total.Equal(dec("90")) {
		t.Fatalf("expected 90, got %s", total)
	}

	total = CalculateOrderTotal(dec("100"), decimal.Zero, dec("10.005"), dec("10"), decimal.Zero, decimal.Zero)
	if !total.Equal(dec("89.995")) {
		t.Fatalf("expected 89.995 (max side wins), got %s", total)
	}
}

func TestCalculateOrderTotal_DistinctDiscountsStack(t *testing.T) {
	total := CalculateOrderTotal(dec("100"), decimal.Zero, dec("10"), dec("5"), decimal.Zero, decimal.Zero)
	if !total.Equal(dec("85")) {
		t.Fatalf("expected 85, got %s", total)
	}
}

func TestCalculateOrderTotal_CouponStacksWithOtherDiscounts(t *testing.T) {
	total := CalculateOrderTotal(dec("100"), dec("20"), dec("10"), dec("10"), dec("5"), dec("8"))
	// 100 - 20 - max(10,10) + 5 + 8
	if !total.Equal(dec("83")) {
		t.Fatalf("expected 83, got %s", total)
	}
}

func TestCalculateOrderTotal_ClampsAtZero(t *testing.T) {
	total := CalculateOrderTotal(dec("10"), dec("50"), decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)
	if !total.Equal(decimal.Zero) {
		t.Fatalf("expected 0, got %s", total)
	}
}

func TestMovementAmount_PrefersWeight(t *testing.T) {
	item := OrderItem{Quantity: dec("2"), WeightQuantity: dec("500")}
	if got := movementAmount(item); !got.Equal(dec("500")) {
		t.Fatalf("expected weight 500, got %s", got)
	}
	item = OrderItem{Quantity: dec("2")}
	if got := movementAmount(item); !got.Equal(dec("2")) {
		t.Fatalf("expected quantity 2, got %s", got)
	}
}

func TestNewOrderValidate(t *testing.T) {
	valid := NewOrder{
		CustomerEmail: "buyer@example.com",
		Items:         []NewOrderItem{{ProductId: 1, Quantity: dec("1")}},
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}

	cases := []NewOrder{
		{Items: []NewOrderItem{{ProductId: 1, Quantity: dec("1")}}},
		{CustomerEmail: "not-an-email", Items: []NewOrderItem{{ProductId: 1, Quantity: dec("1")}}},
		{CustomerEmail: "buyer@example.com"},
		{CustomerEmail: "buyer@example.com", Items: []NewOrderItem{{ProductId: 1}}},
		{CustomerEmail: "buyer@example.com", Items: []NewOrderItem{{ProductId: 1, Quantity: dec("-1")}}},
	}
	for i, input := range cases {
		if err := input.validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestOrderDeletable(t *testing.T) {
	deletable := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusCancelled}
	for _, s := range deletable {
		if !orderDeletable(s) {
			t.Fatalf("expected %s orders to be deletable", s)
		}
	}

	// fulfilled orders keep their records: deleting would restore stock
	// that already shipped
	fulfilled := []OrderStatus{OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted}
	for _, s := range fulfilled {
		if orderDeletable(s) {
			t.Fatalf("expected %s orders to be undeletable", s)
		}
	}
}
