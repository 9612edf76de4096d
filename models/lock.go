package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Per-key serialization via MySQL advisory locks. GET_LOCK is
// connection-scoped, so these must be called on the same *gorm.DB (the
// open transaction) that performs the guarded writes.

func inventoryLockName(productId int, variantId *int) string {
	if variantId == nil {
		return fmt.Sprintf("inventory:%d:-", productId)
	}
	return fmt.Sprintf("inventory:%d:%d", productId, *variantId)
}

func AcquireInventoryLock(tx *gorm.DB, productId int, variantId *int) error {
	return acquireLock(tx, inventoryLockName(productId, variantId))
}

func ReleaseInventoryLock(tx *gorm.DB, productId int, variantId *int) {
	releaseLock(tx, inventoryLockName(productId, variantId))
}

func AcquireLoyaltyLock(tx *gorm.DB, userId string) error {
	return acquireLock(tx, "loyalty:"+userId)
}

func ReleaseLoyaltyLock(tx *gorm.DB, userId string) {
	releaseLock(tx, "loyalty:"+userId)
}

func acquireLock(tx *gorm.DB, lockName string) error {
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire lock %s", lockName)
	}
	return nil
}

func releaseLock(tx *gorm.DB, lockName string) {
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
