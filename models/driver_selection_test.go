package models

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/shopspring/decimal"
)

// Yangon city centre; drivers are placed north of it at known distances.
const (
	destLat = 16.8409
	destLng = 96.1735
)

func activeDriver(id int, name string, latOffset float64, radiusKm int64) Driver {
	active := true
	return Driver{
		ID:                id,
		Name:              name,
		Status:            DriverStatusAvailable,
		IsActive:          &active,
		BaseLat:           destLat + latOffset,
		BaseLng:           destLng,
		MaxDeliveryRadius: decimal.NewFromInt(radiusKm),
	}
}

func TestSelectNearestDriver_PicksClosestWithinRadius(t *testing.T) {
	// one degree of latitude is ~111km
	drivers := []Driver{
		activeDriver(1, "far", 0.5, 100),  // ~55km away
		activeDriver(2, "near", 0.05, 100), // ~5.5km away
		activeDriver(3, "mid", 0.2, 100),  // ~22km away
	}
	candidate, err := selectNearestDriver(drivers, destLat, destLng)
	if err != nil {
		t.Fatal(err)
	}
	if candidate.Driver.ID != 2 {
		t.Fatalf("expected driver 2, got %d", candidate.Driver.ID)
	}
	if candidate.DistanceKm < 5 || candidate.DistanceKm > 6 {
		t.Fatalf("expected ~5.5km, got %v", candidate.DistanceKm)
	}
}

func TestSelectNearestDriver_RespectsEachDriversRadius(t *testing.T) {
	// every driver is closer than the next but none covers the distance
	drivers := []Driver{
		activeDriver(1, "a", 0.15, 10), // ~16km away, 10km radius
		activeDriver(2, "b", 0.25, 20), // ~27km away, 20km radius
		activeDriver(3, "c", 0.35, 30), // ~38km away, 30km radius
	}
	_, err := selectNearestDriver(drivers, destLat, destLng)
	var noDriver *utils.NoDriverAvailableError
	if !errors.As(err, &noDriver) {
		t.Fatalf("expected NoDriverAvailableError, got %v", err)
	}
}

func TestSelectNearestDriver_SkipsBusyAndInactive(t *testing.T) {
	busy := activeDriver(1, "busy", 0.01, 100)
	busy.Status = DriverStatusBusy
	inactive := activeDriver(2, "inactive", 0.02, 100)
	off := false
	inactive.IsActive = &off
	available := activeDriver(3, "available", 0.3, 100)

	candidate, err := selectNearestDriver([]Driver{busy, inactive, available}, destLat, destLng)
	if err != nil {
		t.Fatal(err)
	}
	if candidate.Driver.ID != 3 {
		t.Fatalf("expected driver 3, got %d", candidate.Driver.ID)
	}
}

func TestSelectNearestDriver_NoDrivers(t *testing.T) {
	_, err := selectNearestDriver(nil, destLat, destLng)
	var noDriver *utils.NoDriverAvailableError
	if !errors.As(err, &noDriver) {
		t.Fatalf("expected NoDriverAvailableError, got %v", err)
	}
}

func TestStaticGeocoder(t *testing.T) {
	g := NewStaticGeocoder()
	lat, lng, err := g.Geocode(context.Background(), "", "Yangon")
	if err != nil {
		t.Fatal(err)
	}
	if lat != destLat || lng != destLng {
		t.Fatalf("unexpected coordinates %v,%v", lat, lng)
	}

	// case and whitespace insensitive
	if _, _, err := g.Geocode(context.Background(), "", "  MANDALAY "); err != nil {
		t.Fatalf("expected mandalay to resolve, got %v", err)
	}

	if _, _, err := g.Geocode(context.Background(), "", "atlantis"); !errors.Is(err, ErrorUnknownCity) {
		t.Fatalf("expected ErrorUnknownCity, got %v", err)
	}
}
