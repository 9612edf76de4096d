package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Driver struct {
	ID                int             `gorm:"primary_key" json:"id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Phone             string          `gorm:"size:50" json:"phone"`
	Status            DriverStatus    `gorm:"type:enum('available','busy','offline');default:offline" json:"status"`
	IsActive          *bool           `gorm:"default:true" json:"is_active"`
	BaseLat           float64         `json:"base_lat"`
	BaseLng           float64         `json:"base_lng"`
	MaxDeliveryRadius decimal.Decimal `gorm:"type:decimal(20,4);default:50" json:"max_delivery_radius"`
	VehicleType       string          `gorm:"size:50" json:"vehicle_type"`
	VehicleNumber     string          `gorm:"size:50" json:"vehicle_number"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// DriverAssignment is the current link between an order and a driver.
// At most one row per order has is_active set; reassignment deactivates
// the previous row instead of updating it.
type DriverAssignment struct {
	ID             int            `gorm:"primary_key" json:"id"`
	OrderId        string         `gorm:"size:36;index;not null" json:"order_id"`
	DriverId       int            `gorm:"index;not null" json:"driver_id"`
	AssignmentType AssignmentType `gorm:"type:enum('manual','automatic');default:manual" json:"assignment_type"`
	IsActive       *bool          `gorm:"default:true" json:"is_active"`
	Priority       int            `gorm:"default:1" json:"priority"`
	DeliveryStatus DeliveryStatus `gorm:"type:enum('pending','assigned','picked_up','delivered');default:assigned" json:"delivery_status"`
	DistanceKm     float64        `json:"distance_km"`
	AssignedBy     string         `gorm:"size:36" json:"assigned_by"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	Driver         *Driver        `gorm:"foreignKey:DriverId" json:"driver,omitempty"`
}

// DriverAssignmentHistory is the append-only trail of assignment changes.
type DriverAssignmentHistory struct {
	ID               int                  `gorm:"primary_key" json:"id"`
	OrderId          string               `gorm:"size:36;index;not null" json:"order_id"`
	DriverId         int                  `gorm:"index;not null" json:"driver_id"`
	PreviousDriverId *int                 `json:"previous_driver_id"`
	ChangeType       AssignmentChangeType `gorm:"type:enum('assigned','reassigned');not null" json:"change_type"`
	AssignmentType   AssignmentType       `gorm:"type:enum('manual','automatic');default:manual" json:"assignment_type"`
	ChangedBy        string               `gorm:"size:36" json:"changed_by"`
	CreatedAt        time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type NewDriver struct {
	Name              string           `json:"name" binding:"required"`
	Phone             string           `json:"phone"`
	Status            DriverStatus     `json:"status"`
	BaseLat           float64          `json:"base_lat"`
	BaseLng           float64          `json:"base_lng"`
	MaxDeliveryRadius *decimal.Decimal `json:"max_delivery_radius"`
	VehicleType       string           `json:"vehicle_type"`
	VehicleNumber     string           `json:"vehicle_number"`
}

// GeocodingProvider resolves a delivery destination to coordinates.
// Injected so dispatch logic stays independent of any particular lookup
// backend.
type GeocodingProvider interface {
	Geocode(ctx context.Context, address, city string) (lat float64, lng float64, err error)
}

// StaticGeocoder resolves against a fixed city table. Good enough for a
// single-country deployment; swap for a real provider when coverage needs
// grow.
type StaticGeocoder struct {
	cities map[string][2]float64
}

func NewStaticGeocoder() *StaticGeocoder {
	return &StaticGeocoder{cities: map[string][2]float64{
		"yangon":     {16.8409, 96.1735},
		"mandalay":   {21.9588, 96.0891},
		"naypyidaw":  {19.7633, 96.0785},
		"bago":       {17.3350, 96.4815},
		"mawlamyine": {16.4905, 97.6282},
		"taunggyi":   {20.7833, 97.0333},
		"pathein":    {16.7794, 94.7320},
		"monywa":     {22.1083, 95.1358},
		"meiktila":   {20.8772, 95.8586},
		"myitkyina":  {25.3833, 97.4000},
	}}
}

var ErrorUnknownCity = errors.New("unknown delivery city")

func (g *StaticGeocoder) Geocode(_ context.Context, _ string, city string) (float64, float64, error) {
	coords, ok := g.cities[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return 0, 0, ErrorUnknownCity
	}
	return coords[0], coords[1], nil
}

// defaultGeocoder is used when callers do not inject one.
var defaultGeocoder GeocodingProvider = NewStaticGeocoder()

func SetGeocodingProvider(g GeocodingProvider) {
	if g != nil {
		defaultGeocoder = g
	}
}

type driverCandidate struct {
	Driver     Driver
	DistanceKm float64
}

// selectNearestDriver picks the closest available driver whose own
// delivery radius covers the destination. Pure: no IO.
func selectNearestDriver(drivers []Driver, destLat, destLng float64) (*driverCandidate, error) {
	candidates := make([]driverCandidate, 0, len(drivers))
	for _, d := range drivers {
		if d.Status != DriverStatusAvailable {
			continue
		}
		if d.IsActive != nil && !*d.IsActive {
			continue
		}
		dist := utils.HaversineDistanceKm(d.BaseLat, d.BaseLng, destLat, destLng)
		radius, _ := d.MaxDeliveryRadius.Float64()
		if radius > 0 && dist > radius {
			continue
		}
		candidates = append(candidates, driverCandidate{Driver: d, DistanceKm: dist})
	}
	if len(candidates) == 0 {
		return nil, &utils.NoDriverAvailableError{Reason: "no available driver within delivery radius"}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].Driver.ID < candidates[j].Driver.ID
	})
	return &candidates[0], nil
}

func CreateDriver(ctx context.Context, input *NewDriver) (*Driver, error) {
	db := config.GetDB()

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, fmt.Errorf("invalid phone number: %w", err)
		}
	}
	status := input.Status
	if status == "" {
		status = DriverStatusOffline
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid driver status %q", status)
	}

	driver := Driver{
		Name:          input.Name,
		Phone:         input.Phone,
		Status:        status,
		BaseLat:       input.BaseLat,
		BaseLng:       input.BaseLng,
		VehicleType:   input.VehicleType,
		VehicleNumber: input.VehicleNumber,
	}
	if input.MaxDeliveryRadius != nil {
		driver.MaxDeliveryRadius = *input.MaxDeliveryRadius
	} else {
		driver.MaxDeliveryRadius = decimal.NewFromInt(50)
	}
	if err := db.WithContext(ctx).Create(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

type UpdateDriverInput struct {
	Name              *string          `json:"name"`
	Phone             *string          `json:"phone"`
	Status            *DriverStatus    `json:"status"`
	IsActive          *bool            `json:"is_active"`
	BaseLat           *float64         `json:"base_lat"`
	BaseLng           *float64         `json:"base_lng"`
	MaxDeliveryRadius *decimal.Decimal `json:"max_delivery_radius"`
	VehicleType       *string          `json:"vehicle_type"`
	VehicleNumber     *string          `json:"vehicle_number"`
}

func UpdateDriver(ctx context.Context, id int, input *UpdateDriverInput) (*Driver, error) {
	db := config.GetDB()

	if _, err := utils.FetchModel[Driver](ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["Name"] = *input.Name
	}
	if input.Phone != nil {
		if err := utils.ValidatePhoneNumber(*input.Phone, utils.CountryCode); err != nil {
			return nil, fmt.Errorf("invalid phone number: %w", err)
		}
		updates["Phone"] = *input.Phone
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("invalid driver status %q", *input.Status)
		}
		updates["Status"] = *input.Status
	}
	if input.IsActive != nil {
		updates["IsActive"] = *input.IsActive
	}
	if input.BaseLat != nil {
		updates["BaseLat"] = *input.BaseLat
	}
	if input.BaseLng != nil {
		updates["BaseLng"] = *input.BaseLng
	}
	if input.MaxDeliveryRadius != nil {
		updates["MaxDeliveryRadius"] = *input.MaxDeliveryRadius
	}
	if input.VehicleType != nil {
		updates["VehicleType"] = *input.VehicleType
	}
	if input.VehicleNumber != nil {
		updates["VehicleNumber"] = *input.VehicleNumber
	}
	if len(updates) > 0 {
		if err := db.WithContext(ctx).Model(&Driver{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return utils.FetchModel[Driver](ctx, id)
}

func ListDrivers(ctx context.Context, status DriverStatus) ([]*Driver, error) {
	db := config.GetDB()
	q := db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var drivers []*Driver
	if err := q.Order("name").Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

type AssignDriverInput struct {
	OrderId        string         `json:"order_id" binding:"required"`
	DriverId       int            `json:"driver_id"`
	AssignmentType AssignmentType `json:"assignment_type"`
}

// AssignDriver links an order to a driver. Manual assignment takes the
// given driver; automatic geocodes the delivery destination and picks
// the nearest available driver within radius. Reassignment deactivates
// the previous link, records history and flips the freed driver back to
// available if they hold no other active deliveries.
func AssignDriver(ctx context.Context, input *AssignDriverInput, assignedBy string) (*DriverAssignment, error) {
	db := config.GetDB()

	order, err := GetOrder(ctx, input.OrderId)
	if err != nil {
		return nil, err
	}
	if order.OrderType != OrderTypeDelivery {
		return nil, errors.New("only delivery orders can be assigned a driver")
	}
	if order.Status == OrderStatusCancelled {
		return nil, errors.New("cancelled orders cannot be assigned a driver")
	}

	assignmentType := input.AssignmentType
	if assignmentType == "" {
		if input.DriverId > 0 {
			assignmentType = AssignmentTypeManual
		} else {
			assignmentType = AssignmentTypeAutomatic
		}
	}
	if !assignmentType.Valid() {
		return nil, fmt.Errorf("invalid assignment type %q", assignmentType)
	}

	var chosen Driver
	var distanceKm float64

	switch assignmentType {
	case AssignmentTypeManual:
		if input.DriverId <= 0 {
			return nil, errors.New("driver id is required for manual assignment")
		}
		driver, err := utils.FetchModel[Driver](ctx, input.DriverId)
		if err != nil {
			return nil, err
		}
		if driver.IsActive != nil && !*driver.IsActive {
			return nil, &utils.NoDriverAvailableError{Reason: fmt.Sprintf("driver %s is inactive", driver.Name)}
		}
		if driver.Status != DriverStatusAvailable {
			return nil, &utils.NoDriverAvailableError{Reason: fmt.Sprintf("driver %s is %s", driver.Name, driver.Status)}
		}
		chosen = *driver
		if destLat, destLng, err := defaultGeocoder.Geocode(ctx, order.ShippingAddress, order.ShippingCity); err == nil {
			distanceKm = utils.HaversineDistanceKm(chosen.BaseLat, chosen.BaseLng, destLat, destLng)
		}
	case AssignmentTypeAutomatic:
		destLat, destLng, err := defaultGeocoder.Geocode(ctx, order.ShippingAddress, order.ShippingCity)
		if err != nil {
			return nil, &utils.NoDriverAvailableError{Reason: fmt.Sprintf("destination could not be located: %v", err)}
		}
		var drivers []Driver
		if err := db.WithContext(ctx).Where("status = ?", DriverStatusAvailable).Find(&drivers).Error; err != nil {
			return nil, err
		}
		candidate, err := selectNearestDriver(drivers, destLat, destLng)
		if err != nil {
			return nil, err
		}
		chosen = candidate.Driver
		distanceKm = candidate.DistanceKm
	}

	active := true
	assignment := DriverAssignment{
		OrderId:        order.ID,
		DriverId:       chosen.ID,
		AssignmentType: assignmentType,
		IsActive:       &active,
		Priority:       1,
		DeliveryStatus: DeliveryStatusAssigned,
		DistanceKm:     distanceKm,
		AssignedBy:     assignedBy,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous DriverAssignment
		hasPrevious := false
		err := tx.WithContext(ctx).
			Where("order_id = ? AND is_active = ?", order.ID, true).
			First(&previous).Error
		if err == nil {
			hasPrevious = true
			if previous.DriverId == chosen.ID {
				return errors.New("order is already assigned to this driver")
			}
			if err := tx.WithContext(ctx).Model(&DriverAssignment{}).
				Where("id = ?", previous.ID).
				Update("is_active", false).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.WithContext(ctx).Create(&assignment).Error; err != nil {
			return err
		}

		history := DriverAssignmentHistory{
			OrderId:        order.ID,
			DriverId:       chosen.ID,
			ChangeType:     AssignmentChangeTypeAssigned,
			AssignmentType: assignmentType,
			ChangedBy:      assignedBy,
		}
		if hasPrevious {
			history.ChangeType = AssignmentChangeTypeReassigned
			history.PreviousDriverId = &previous.DriverId
		}
		if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Model(&Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"AssignedDriverId": chosen.ID,
			"DeliveryStatus":   DeliveryStatusAssigned,
		}).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Model(&Driver{}).
			Where("id = ?", chosen.ID).
			Update("status", DriverStatusBusy).Error; err != nil {
			return err
		}

		if hasPrevious {
			var remaining int64
			if err := tx.WithContext(ctx).Model(&DriverAssignment{}).
				Where("driver_id = ? AND is_active = ?", previous.DriverId, true).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.WithContext(ctx).Model(&Driver{}).
					Where("id = ? AND status = ?", previous.DriverId, DriverStatusBusy).
					Update("status", DriverStatusAvailable).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	assignment.Driver = &chosen
	return &assignment, nil
}

type AssignmentFilter struct {
	OrderId    string
	DriverId   int
	ActiveOnly bool
	Limit      int
}

func ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*DriverAssignment, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Preload("Driver")
	if filter.OrderId != "" {
		q = q.Where("order_id = ?", filter.OrderId)
	}
	if filter.DriverId > 0 {
		q = q.Where("driver_id = ?", filter.DriverId)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var assignments []*DriverAssignment
	if err := q.Order("id DESC").Limit(limit).Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func ListAssignmentHistory(ctx context.Context, orderId string) ([]*DriverAssignmentHistory, error) {
	db := config.GetDB()
	var history []*DriverAssignmentHistory
	q := db.WithContext(ctx)
	if orderId != "" {
		q = q.Where("order_id = ?", orderId)
	}
	if err := q.Order("id DESC").Limit(200).Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}
