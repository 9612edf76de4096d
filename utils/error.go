package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// InsufficientStockError reports an outgoing movement that would drive
// stock below zero. Available/Requested are in the product's stock unit
// (pieces or grams).
type InsufficientStockError struct {
	ProductName string
	Unit        string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s %s, requested %s %s",
		e.ProductName, e.Available.String(), e.Unit, e.Requested.String(), e.Unit)
}

// OutOfStockError reports an outgoing movement against a product that has
// no inventory record at all.
type OutOfStockError struct {
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("no stock record for %s", e.ProductName)
}

type InsufficientPointsError struct {
	Available int64
	Requested int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: available %d, requested %d", e.Available, e.Requested)
}

type BelowRedemptionMinimumError struct {
	Minimum   int64
	Requested int64
}

func (e *BelowRedemptionMinimumError) Error() string {
	return fmt.Sprintf("minimum redemption is %d points, requested %d", e.Minimum, e.Requested)
}

type NoDriverAvailableError struct {
	Reason string
}

func (e *NoDriverAvailableError) Error() string {
	if e.Reason == "" {
		return "no driver available"
	}
	return "no driver available: " + e.Reason
}
