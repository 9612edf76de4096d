package models

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
)

// Setting is a key/value row. Business configuration lives here and is
// consumed through the typed snapshots below, never by ad-hoc per-call
// string parsing.
type Setting struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"size:255" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	SettingKeyStockManagementEnabled = "stock_management_enabled"
	SettingKeyLoyaltyEnabled         = "loyalty_enabled"
	SettingKeyPointsEarningBasis     = "points_earning_basis"
	SettingKeyPointsEarningRate      = "points_earning_rate"
	SettingKeyPointsMinimumOrder     = "points_minimum_order"
	SettingKeyPointsRedemptionMin    = "points_redemption_minimum"
	SettingKeyPointsRedemptionValue  = "points_redemption_value"
	SettingKeyPointsExpiryMonths     = "points_expiry_months"
	SettingKeyPointsMaxRedemptionPct = "points_max_redemption_percent"
)

const settingsCacheKey = "settings:snapshot"

type EarningBasis string

const (
	EarningBasisSubtotal EarningBasis = "subtotal"
	EarningBasisTotal    EarningBasis = "total"
)

// LoyaltySettings is the typed view of the loyalty configuration keys.
type LoyaltySettings struct {
	Enabled              bool         `json:"enabled"`
	EarningBasis         EarningBasis `json:"earning_basis"`
	EarningRate          float64      `json:"earning_rate"`
	MinimumOrder         float64      `json:"minimum_order"`
	RedemptionMinimum    int64        `json:"redemption_minimum"`
	RedemptionValue      float64      `json:"redemption_value"`
	ExpiryMonths         int          `json:"expiry_months"`
	MaxRedemptionPercent float64      `json:"max_redemption_percent"`
}

// ParseLoyaltySettings converts raw key/value rows into the typed struct.
// Booleans are the literal string "true"; numbers parse as floats.
func ParseLoyaltySettings(raw map[string]string) LoyaltySettings {
	s := LoyaltySettings{
		EarningBasis: EarningBasisSubtotal,
		EarningRate:  1,
	}
	s.Enabled = raw[SettingKeyLoyaltyEnabled] == "true"
	if basis := raw[SettingKeyPointsEarningBasis]; basis == string(EarningBasisTotal) {
		s.EarningBasis = EarningBasisTotal
	}
	if v, err := strconv.ParseFloat(raw[SettingKeyPointsEarningRate], 64); err == nil {
		s.EarningRate = v
	}
	if v, err := strconv.ParseFloat(raw[SettingKeyPointsMinimumOrder], 64); err == nil {
		s.MinimumOrder = v
	}
	if v, err := strconv.ParseFloat(raw[SettingKeyPointsRedemptionMin], 64); err == nil {
		s.RedemptionMinimum = int64(v)
	}
	if v, err := strconv.ParseFloat(raw[SettingKeyPointsRedemptionValue], 64); err == nil {
		s.RedemptionValue = v
	}
	if v, err := strconv.ParseFloat(raw[SettingKeyPointsExpiryMonths], 64); err == nil {
		s.ExpiryMonths = int(v)
	}
	if v, err := strconv.ParseFloat(raw[SettingKeyPointsMaxRedemptionPct], 64); err == nil {
		s.MaxRedemptionPercent = v
	}
	return s
}

// fetchSettingsMap loads all settings, redis first then db.
func fetchSettingsMap(ctx context.Context) (map[string]string, error) {
	raw := make(map[string]string)
	exists, err := config.GetRedisObject(settingsCacheKey, &raw)
	if err != nil {
		return nil, err
	}
	if exists {
		return raw, nil
	}

	db := config.GetDB()
	var rows []Setting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		raw[row.Key] = row.Value
	}
	if err := config.SetRedisObject(settingsCacheKey, &raw, 0); err != nil {
		return nil, err
	}
	return raw, nil
}

func GetLoyaltySettings(ctx context.Context) (LoyaltySettings, error) {
	raw, err := fetchSettingsMap(ctx)
	if err != nil {
		return LoyaltySettings{}, err
	}
	return ParseLoyaltySettings(raw), nil
}

func IsStockManagementEnabled(ctx context.Context) (bool, error) {
	raw, err := fetchSettingsMap(ctx)
	if err != nil {
		return false, err
	}
	v, ok := raw[SettingKeyStockManagementEnabled]
	if !ok {
		// stock management defaults on; disabling it is the exception
		return true, nil
	}
	return v == "true", nil
}

func ListSettings(ctx context.Context) ([]*Setting, error) {
	return FetchAllSettings(ctx)
}

func FetchAllSettings(ctx context.Context) ([]*Setting, error) {
	db := config.GetDB()
	var rows []*Setting
	if err := db.WithContext(ctx).Order("`key`").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertSetting writes one key and busts the cached snapshot.
func UpsertSetting(ctx context.Context, key string, value string) (*Setting, error) {
	db := config.GetDB()

	var row Setting
	err := db.WithContext(ctx).Where("`key` = ?", key).First(&row).Error
	if err == nil {
		if err := db.WithContext(ctx).Model(&row).Update("value", value).Error; err != nil {
			return nil, err
		}
		row.Value = value
	} else {
		row = Setting{Key: key, Value: value}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
	}

	if err := config.RemoveRedisKey(settingsCacheKey); err != nil {
		return nil, err
	}
	return &row, nil
}
