package utils

import (
	"regexp"
	"testing"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^ORD-\d{13}-\d{5}$`)
	for i := 0; i < 10; i++ {
		n := GenerateOrderNumber()
		if !re.MatchString(n) {
			t.Fatalf("unexpected order number format: %q", n)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com"}
	invalid := []string{"", "plain", "a@b", "@example.com", "a b@example.com"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Fatalf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Fatalf("expected %q to be invalid", e)
		}
	}
}

func TestHaversineDistanceKm(t *testing.T) {
	// Yangon to Mandalay is roughly 570km
	d := HaversineDistanceKm(16.8409, 96.1735, 21.9588, 96.0891)
	if d < 550 || d > 600 {
		t.Fatalf("expected ~570km, got %v", d)
	}

	if d := HaversineDistanceKm(16.8409, 96.1735, 16.8409, 96.1735); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}
