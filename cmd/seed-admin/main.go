// seed-admin creates or updates the back office admin user and inserts
// the default settings rows when they are missing.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@storefront.local"
	adminPassword = "St0refront@dmin"
	adminName     = "Storefront Admin"
)

var defaultSettings = map[string]string{
	models.SettingKeyStockManagementEnabled: "true",
	models.SettingKeyLoyaltyEnabled:         "true",
	models.SettingKeyPointsEarningBasis:     "subtotal",
	models.SettingKeyPointsEarningRate:      "1",
	models.SettingKeyPointsMinimumOrder:     "0",
	models.SettingKeyPointsRedemptionMin:    "100",
	models.SettingKeyPointsRedemptionValue:  "0.01",
	models.SettingKeyPointsExpiryMonths:     "12",
	models.SettingKeyPointsMaxRedemptionPct: "50",
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = adminPassword
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Where("email = ?", adminEmail).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		user := models.User{
			Name:     adminName,
			Email:    adminEmail,
			Password: string(hashed),
			Role:     "admin",
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin user %s (id=%d)\n", adminEmail, user.ID)
	} else {
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"password": string(hashed),
			"role":     "admin",
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("updated admin user %s (id=%d)\n", adminEmail, existing.ID)
	}

	seeded := 0
	for key, value := range defaultSettings {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Setting{}).Where("`key` = ?", key).Count(&count).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to check setting %s: %v\n", key, err)
			os.Exit(1)
		}
		if count > 0 {
			continue
		}
		if _, err := models.UpsertSetting(ctx, key, value); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed setting %s: %v\n", key, err)
			os.Exit(1)
		}
		seeded++
	}
	fmt.Printf("seeded %d default settings\n", seeded)
}
