package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplyMovementDelta_In(t *testing.T) {
	next, err := applyMovementDelta(MovementTypeIn, dec("10"), dec("2.5"))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(dec("12.5")) {
		t.Fatalf("expected 12.5, got %s", next)
	}
}

func TestApplyMovementDelta_Out(t *testing.T) {
	next, err := applyMovementDelta(MovementTypeOut, dec("10"), dec("4"))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(dec("6")) {
		t.Fatalf("expected 6, got %s", next)
	}
}

func TestApplyMovementDelta_OutNeverGoesNegative(t *testing.T) {
	_, err := applyMovementDelta(MovementTypeOut, dec("3"), dec("4"))
	if !errors.Is(err, errInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// exact drain is fine
	next, err := applyMovementDelta(MovementTypeOut, dec("3"), dec("3"))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(decimal.Zero) {
		t.Fatalf("expected 0, got %s", next)
	}
}

func TestApplyMovementDelta_AdjustmentIsAbsolute(t *testing.T) {
	next, err := applyMovementDelta(MovementTypeAdjustment, dec("100"), dec("7"))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(dec("7")) {
		t.Fatalf("expected 7, got %s", next)
	}
}

func TestApplyMovementDelta_RejectsUnknownType(t *testing.T) {
	if _, err := applyMovementDelta(MovementType("transfer"), dec("1"), dec("1")); err == nil {
		t.Fatal("expected error for unknown movement type")
	}
}

func TestCollapseVariant_WeightVariablePoolsAtProductLevel(t *testing.T) {
	variable := true
	product := &Product{StockManagementType: StockManagementTypeWeight, IsVariable: &variable}

	v5, v7 := 5, 7
	if got := collapseVariant(product, &v5); got != nil {
		t.Fatalf("expected variant to collapse to null, got %d", *got)
	}

	// both variants and the variantless caller must serialize on the same
	// lock, since they all write the one pooled record
	lockA := inventoryLockName(1, collapseVariant(product, &v5))
	lockB := inventoryLockName(1, collapseVariant(product, &v7))
	lockC := inventoryLockName(1, collapseVariant(product, nil))
	if lockA != lockB || lockB != lockC {
		t.Fatalf("expected one shared lock key, got %q / %q / %q", lockA, lockB, lockC)
	}
}

func TestCollapseVariant_KeepsVariantOtherwise(t *testing.T) {
	variable, simple := true, false
	v5 := 5

	quantityVariable := &Product{StockManagementType: StockManagementTypeQuantity, IsVariable: &variable}
	if got := collapseVariant(quantityVariable, &v5); got == nil || *got != 5 {
		t.Fatalf("quantity-managed variant must keep its own record, got %v", got)
	}

	weightSimple := &Product{StockManagementType: StockManagementTypeWeight, IsVariable: &simple}
	if got := collapseVariant(weightSimple, &v5); got == nil || *got != 5 {
		t.Fatalf("non-variable weight product must keep the given variant, got %v", got)
	}

	if inventoryLockName(1, collapseVariant(quantityVariable, &v5)) == inventoryLockName(1, nil) {
		t.Fatal("distinct variants must not share the product-level lock")
	}
}
