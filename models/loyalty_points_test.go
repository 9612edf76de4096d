package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPointsToAward_SubtotalBasis(t *testing.T) {
	settings := LoyaltySettings{EarningBasis: EarningBasisSubtotal, EarningRate: 1}
	if got := PointsToAward(settings, dec("60"), dec("50")); got != 50 {
		t.Fatalf("expected 50 points, got %d", got)
	}
}

func TestPointsToAward_TotalBasis(t *testing.T) {
	settings := LoyaltySettings{EarningBasis: EarningBasisTotal, EarningRate: 1}
	if got := PointsToAward(settings, dec("60"), dec("50")); got != 60 {
		t.Fatalf("expected 60 points, got %d", got)
	}
}

func TestPointsToAward_FloorsFractions(t *testing.T) {
	settings := LoyaltySettings{EarningBasis: EarningBasisSubtotal, EarningRate: 0.5}
	if got := PointsToAward(settings, dec("0"), dec("33")); got != 16 {
		t.Fatalf("expected 16 points, got %d", got)
	}
}

func TestPointsToAward_MinimumOrderGate(t *testing.T) {
	settings := LoyaltySettings{EarningBasis: EarningBasisSubtotal, EarningRate: 1, MinimumOrder: 100}
	if got := PointsToAward(settings, dec("0"), dec("99.99")); got != 0 {
		t.Fatalf("expected 0 points below minimum, got %d", got)
	}
	if got := PointsToAward(settings, dec("0"), dec("100")); got != 100 {
		t.Fatalf("expected 100 points at minimum, got %d", got)
	}
}

func TestPointsExpiryDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	settings := LoyaltySettings{ExpiryMonths: 12}
	expiry := pointsExpiry(settings, now)
	if expiry == nil {
		t.Fatal("expected an expiry date")
	}
	if expiry.Year() != 2027 || expiry.Month() != time.March {
		t.Fatalf("expected March 2027, got %s", expiry)
	}

	if pointsExpiry(LoyaltySettings{}, now) != nil {
		t.Fatal("expected nil expiry when months is 0")
	}
}

func TestParseLoyaltySettings_Defaults(t *testing.T) {
	s := ParseLoyaltySettings(map[string]string{})
	if s.Enabled {
		t.Fatal("loyalty should default to disabled")
	}
	if s.EarningBasis != EarningBasisSubtotal {
		t.Fatalf("expected subtotal basis, got %s", s.EarningBasis)
	}
	if s.EarningRate != 1 {
		t.Fatalf("expected rate 1, got %v", s.EarningRate)
	}
}

func TestParseLoyaltySettings_ReadsConfiguredValues(t *testing.T) {
	s := ParseLoyaltySettings(map[string]string{
		SettingKeyLoyaltyEnabled:         "true",
		SettingKeyPointsEarningBasis:     "total",
		SettingKeyPointsEarningRate:      "2.5",
		SettingKeyPointsMinimumOrder:     "20",
		SettingKeyPointsRedemptionMin:    "100",
		SettingKeyPointsRedemptionValue:  "0.01",
		SettingKeyPointsExpiryMonths:     "6",
		SettingKeyPointsMaxRedemptionPct: "50",
	})
	if !s.Enabled || s.EarningBasis != EarningBasisTotal || s.EarningRate != 2.5 {
		t.Fatalf("unexpected parse result: %+v", s)
	}
	if s.RedemptionMinimum != 100 || s.RedemptionValue != 0.01 || s.ExpiryMonths != 6 || s.MaxRedemptionPercent != 50 {
		t.Fatalf("unexpected parse result: %+v", s)
	}
}

func TestParseLoyaltySettings_IgnoresGarbageNumbers(t *testing.T) {
	s := ParseLoyaltySettings(map[string]string{
		SettingKeyPointsEarningRate: "not-a-number",
	})
	if s.EarningRate != 1 {
		t.Fatalf("expected default rate 1 on parse failure, got %v", s.EarningRate)
	}

	d := decimal.NewFromFloat(s.EarningRate)
	if !d.Equal(dec("1")) {
		t.Fatalf("expected decimal 1, got %s", d)
	}
}
