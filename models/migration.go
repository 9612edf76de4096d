package models

import (
	"log"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Setting{},
		&User{},
		&ProductCategory{}, &Product{}, &ProductVariant{},
		&TagGroup{}, &Tag{}, &ProductTag{},
		&InventoryRecord{}, &StockMovement{},
		&Order{}, &OrderItem{},
		&UserLoyaltyPoints{}, &LoyaltyPointsHistory{},
		&Driver{}, &DriverAssignment{}, &DriverAssignmentHistory{},
		&SideEffectRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
