package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrorLoyaltyDisabled = errors.New("loyalty program is disabled")

// UserLoyaltyPoints is the per-user balance row.
// AvailablePoints and PendingPoints never go below zero; every mutation
// happens inside a transaction under the user's advisory lock, paired
// with its LoyaltyPointsHistory insert.
type UserLoyaltyPoints struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	UserId              string    `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	TotalPointsEarned   int64     `gorm:"default:0" json:"total_points_earned"`
	TotalPointsRedeemed int64     `gorm:"default:0" json:"total_points_redeemed"`
	AvailablePoints     int64     `gorm:"default:0" json:"available_points"`
	PendingPoints       int64     `gorm:"default:0" json:"pending_points"`
	PointsExpiringSoon  int64     `gorm:"default:0" json:"points_expiring_soon"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LoyaltyPointsHistory is the append-only points ledger. Points are
// signed; PointsBalance snapshots the available balance after the event.
type LoyaltyPointsHistory struct {
	ID              int                   `gorm:"primary_key" json:"id"`
	UserId          string                `gorm:"size:36;index;not null" json:"user_id"`
	OrderId         *string               `gorm:"size:36;index" json:"order_id"`
	TransactionType PointsTransactionType `gorm:"type:enum('earned','redeemed','expired','manual_adjustment');not null" json:"transaction_type"`
	Status          PointsStatus          `gorm:"type:enum('pending','available','expired');not null" json:"status"`
	Points          int64                 `gorm:"not null" json:"points"`
	PointsBalance   int64                 `gorm:"not null" json:"points_balance"`
	ExpiresAt       *time.Time            `gorm:"index" json:"expires_at"`
	IsExpired       bool                  `gorm:"not null;default:false;index" json:"is_expired"`
	Description     string                `gorm:"size:255" json:"description"`
	ProcessedBy     string                `gorm:"size:100" json:"processed_by"`
	CreatedAt       time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

// PointsToAward computes earned points from the configured basis.
// Returns 0 when the basis amount is below the minimum order or the
// formula floors to nothing.
func PointsToAward(settings LoyaltySettings, orderAmount decimal.Decimal, subtotal decimal.Decimal) int64 {
	base := subtotal
	if settings.EarningBasis == EarningBasisTotal {
		base = orderAmount
	}
	if base.LessThan(decimal.NewFromFloat(settings.MinimumOrder)) {
		return 0
	}
	points := base.Mul(decimal.NewFromFloat(settings.EarningRate)).IntPart()
	if points < 0 {
		return 0
	}
	return points
}

func pointsExpiry(settings LoyaltySettings, now time.Time) *time.Time {
	if settings.ExpiryMonths <= 0 {
		return nil
	}
	t := now.AddDate(0, settings.ExpiryMonths, 0)
	return &t
}

// refreshExpiringSoon recomputes the denormalized expiring-soon counter
// from the ledger and persists it. Runs inside the caller's transaction,
// after the ledger rows it depends on are written.
func refreshExpiringSoon(ctx context.Context, tx *gorm.DB, balance *UserLoyaltyPoints) error {
	soon := time.Now().AddDate(0, 1, 0)
	var total int64
	if err := tx.WithContext(ctx).Model(&LoyaltyPointsHistory{}).
		Where("user_id = ? AND transaction_type = ? AND is_expired = false AND expires_at IS NOT NULL AND expires_at <= ?",
			balance.UserId, PointsTransactionTypeEarned, soon).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return err
	}
	balance.PointsExpiringSoon = total
	return tx.WithContext(ctx).Model(balance).Update("PointsExpiringSoon", total).Error
}

// fetchBalanceForUpdate loads or creates the user's balance row inside tx.
// The caller must hold the user's loyalty lock.
func fetchBalanceForUpdate(ctx context.Context, tx *gorm.DB, userId string) (*UserLoyaltyPoints, error) {
	var balance UserLoyaltyPoints
	err := tx.WithContext(ctx).Where("user_id = ?", userId).First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	balance = UserLoyaltyPoints{UserId: userId}
	if err := tx.WithContext(ctx).Create(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// AwardPendingPoints credits pending (not yet spendable) points for an
// order. Returns 0 without error when the order is below the earning
// threshold or the program floors to zero points.
func AwardPendingPoints(ctx context.Context, userId string, orderId string, orderAmount decimal.Decimal, subtotal decimal.Decimal) (int64, error) {
	return awardPoints(ctx, userId, orderId, orderAmount, subtotal, true)
}

// AwardPoints is the direct-award path used when an order is created
// already completed: points become available immediately.
func AwardPoints(ctx context.Context, userId string, orderId string, orderAmount decimal.Decimal, subtotal decimal.Decimal) (int64, error) {
	return awardPoints(ctx, userId, orderId, orderAmount, subtotal, false)
}

func awardPoints(ctx context.Context, userId string, orderId string, orderAmount decimal.Decimal, subtotal decimal.Decimal, pending bool) (int64, error) {
	settings, err := GetLoyaltySettings(ctx)
	if err != nil {
		return 0, err
	}
	if !settings.Enabled {
		return 0, ErrorLoyaltyDisabled
	}

	points := PointsToAward(settings, orderAmount, subtotal)
	if points <= 0 {
		return 0, nil
	}
	expiresAt := pointsExpiry(settings, time.Now())

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLoyaltyLock(tx, userId); err != nil {
			return err
		}
		defer ReleaseLoyaltyLock(tx, userId)

		balance, err := fetchBalanceForUpdate(ctx, tx, userId)
		if err != nil {
			return err
		}

		balance.TotalPointsEarned += points
		status := PointsStatusAvailable
		if pending {
			balance.PendingPoints += points
			status = PointsStatusPending
		} else {
			balance.AvailablePoints += points
		}
		if err := tx.WithContext(ctx).Save(balance).Error; err != nil {
			return err
		}

		// pending rows snapshot the untouched available balance: the
		// points are not yet spendable
		history := LoyaltyPointsHistory{
			UserId:          userId,
			OrderId:         &orderId,
			TransactionType: PointsTransactionTypeEarned,
			Status:          status,
			Points:          points,
			PointsBalance:   balance.AvailablePoints,
			ExpiresAt:       expiresAt,
			Description:     "Points earned from order",
		}
		if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
			return err
		}
		return refreshExpiringSoon(ctx, tx, balance)
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// ActivatePendingPoints moves an order's pending earned rows to available.
// Activating an order with no pending rows is a no-op, not an error.
func ActivatePendingPoints(ctx context.Context, userId string, orderId string) (int64, error) {
	settings, err := GetLoyaltySettings(ctx)
	if err != nil {
		return 0, err
	}
	if !settings.Enabled {
		return 0, ErrorLoyaltyDisabled
	}

	db := config.GetDB()
	var activated int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLoyaltyLock(tx, userId); err != nil {
			return err
		}
		defer ReleaseLoyaltyLock(tx, userId)

		var rows []LoyaltyPointsHistory
		if err := tx.WithContext(ctx).
			Where("user_id = ? AND order_id = ? AND transaction_type = ? AND status = ?",
				userId, orderId, PointsTransactionTypeEarned, PointsStatusPending).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			activated = 0
			return nil
		}

		var sum int64
		for _, row := range rows {
			sum += row.Points
		}

		balance, err := fetchBalanceForUpdate(ctx, tx, userId)
		if err != nil {
			return err
		}
		balance.AvailablePoints += sum
		balance.PendingPoints -= sum
		if balance.PendingPoints < 0 {
			balance.PendingPoints = 0
		}
		if err := tx.WithContext(ctx).Save(balance).Error; err != nil {
			return err
		}

		for i := range rows {
			if err := tx.WithContext(ctx).Model(&rows[i]).Updates(map[string]interface{}{
				"Status":        PointsStatusAvailable,
				"PointsBalance": balance.AvailablePoints,
			}).Error; err != nil {
				return err
			}
		}
		activated = sum
		return nil
	})
	if err != nil {
		return 0, err
	}
	return activated, nil
}

// RedeemPoints debits available points against an order. The sufficiency
// and minimum checks happen inside the lock, so no mutation occurs on
// failure.
func RedeemPoints(ctx context.Context, userId string, orderId string, pointsToRedeem int64, discountAmount decimal.Decimal) (*LoyaltyPointsHistory, error) {
	settings, err := GetLoyaltySettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrorLoyaltyDisabled
	}
	if pointsToRedeem <= 0 {
		return nil, errors.New("points to redeem must be positive")
	}
	if pointsToRedeem < settings.RedemptionMinimum {
		return nil, &utils.BelowRedemptionMinimumError{
			Minimum:   settings.RedemptionMinimum,
			Requested: pointsToRedeem,
		}
	}

	db := config.GetDB()
	var history *LoyaltyPointsHistory
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLoyaltyLock(tx, userId); err != nil {
			return err
		}
		defer ReleaseLoyaltyLock(tx, userId)

		balance, err := fetchBalanceForUpdate(ctx, tx, userId)
		if err != nil {
			return err
		}
		if balance.AvailablePoints < pointsToRedeem {
			return &utils.InsufficientPointsError{
				Available: balance.AvailablePoints,
				Requested: pointsToRedeem,
			}
		}

		balance.AvailablePoints -= pointsToRedeem
		balance.TotalPointsRedeemed += pointsToRedeem
		if err := tx.WithContext(ctx).Save(balance).Error; err != nil {
			return err
		}

		row := LoyaltyPointsHistory{
			UserId:          userId,
			OrderId:         &orderId,
			TransactionType: PointsTransactionTypeRedeemed,
			Status:          PointsStatusAvailable,
			Points:          -pointsToRedeem,
			PointsBalance:   balance.AvailablePoints,
			Description:     "Points redeemed for discount " + discountAmount.StringFixed(2),
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		history = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ManualAdjustment applies a signed admin correction. Over-debits clamp
// the balance at zero instead of failing.
func ManualAdjustment(ctx context.Context, userId string, points int64, reason string, adminUserId int) (*LoyaltyPointsHistory, error) {
	if adminUserId <= 0 {
		return nil, errors.New("admin user id is required")
	}
	return adjustPoints(ctx, userId, points, reason, "admin")
}

// RefundRedeemedPoints credits back points when an order's redemption is
// reduced after placement.
func RefundRedeemedPoints(ctx context.Context, userId string, orderId string, points int64) (*LoyaltyPointsHistory, error) {
	if points <= 0 {
		return nil, errors.New("refund points must be positive")
	}
	return adjustPoints(ctx, userId, points, "Points refunded for order "+orderId, "system")
}

func adjustPoints(ctx context.Context, userId string, points int64, reason string, processedBy string) (*LoyaltyPointsHistory, error) {
	settings, err := GetLoyaltySettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrorLoyaltyDisabled
	}
	if points == 0 {
		return nil, errors.New("adjustment points cannot be zero")
	}

	db := config.GetDB()
	var history *LoyaltyPointsHistory
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLoyaltyLock(tx, userId); err != nil {
			return err
		}
		defer ReleaseLoyaltyLock(tx, userId)

		balance, err := fetchBalanceForUpdate(ctx, tx, userId)
		if err != nil {
			return err
		}

		newBalance := balance.AvailablePoints + points
		if newBalance < 0 {
			newBalance = 0
		}
		balance.AvailablePoints = newBalance
		if points > 0 {
			balance.TotalPointsEarned += points
		} else {
			balance.TotalPointsRedeemed += -points
		}
		if err := tx.WithContext(ctx).Save(balance).Error; err != nil {
			return err
		}

		row := LoyaltyPointsHistory{
			UserId:          userId,
			TransactionType: PointsTransactionTypeManualAdjustment,
			Status:          PointsStatusAvailable,
			Points:          points,
			PointsBalance:   balance.AvailablePoints,
			Description:     reason,
			ProcessedBy:     processedBy,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		history = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

type ExpirePointsResult struct {
	UsersProcessed int   `json:"users_processed"`
	RowsExpired    int   `json:"rows_expired"`
	PointsExpired  int64 `json:"points_expired"`
}

// ExpirePoints retires earned rows past their expiry date. Users are
// processed in deterministic order, one transaction each; the is_expired
// flag makes re-runs (and crash resumes) safe, since already-expired rows
// never match again.
func ExpirePoints(ctx context.Context) (*ExpirePointsResult, error) {
	db := config.GetDB()
	now := time.Now()

	var userIds []string
	if err := db.WithContext(ctx).Model(&LoyaltyPointsHistory{}).
		Where("transaction_type = ? AND is_expired = false AND expires_at IS NOT NULL AND expires_at <= ?",
			PointsTransactionTypeEarned, now).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &userIds).Error; err != nil {
		return nil, err
	}

	result := &ExpirePointsResult{}
	for _, userId := range userIds {
		if err := expirePointsForUser(ctx, db, userId, now, result); err != nil {
			return result, err
		}
		result.UsersProcessed++
	}
	return result, nil
}

func expirePointsForUser(ctx context.Context, db *gorm.DB, userId string, now time.Time, result *ExpirePointsResult) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLoyaltyLock(tx, userId); err != nil {
			return err
		}
		defer ReleaseLoyaltyLock(tx, userId)

		var rows []LoyaltyPointsHistory
		if err := tx.WithContext(ctx).
			Where("user_id = ? AND transaction_type = ? AND is_expired = false AND expires_at IS NOT NULL AND expires_at <= ?",
				userId, PointsTransactionTypeEarned, now).
			Order("id").
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		var total int64
		for i := range rows {
			if err := tx.WithContext(ctx).Model(&rows[i]).Update("is_expired", true).Error; err != nil {
				return err
			}
			total += rows[i].Points
		}

		balance, err := fetchBalanceForUpdate(ctx, tx, userId)
		if err != nil {
			return err
		}
		balance.AvailablePoints -= total
		if balance.AvailablePoints < 0 {
			balance.AvailablePoints = 0
		}
		if err := tx.WithContext(ctx).Save(balance).Error; err != nil {
			return err
		}

		for _, row := range rows {
			compensating := LoyaltyPointsHistory{
				UserId:          userId,
				OrderId:         row.OrderId,
				TransactionType: PointsTransactionTypeExpired,
				Status:          PointsStatusExpired,
				Points:          -row.Points,
				PointsBalance:   balance.AvailablePoints,
				Description:     "Points expired",
				ProcessedBy:     "system",
			}
			if err := tx.WithContext(ctx).Create(&compensating).Error; err != nil {
				return err
			}
			result.RowsExpired++
			result.PointsExpired += row.Points
		}
		return refreshExpiringSoon(ctx, tx, balance)
	})
}

type LoyaltySummary struct {
	Balance       *UserLoyaltyPoints      `json:"balance"`
	History       []*LoyaltyPointsHistory `json:"history"`
	ExpiringSoon  int64                   `json:"expiring_soon"`
	MoneySaved    decimal.Decimal         `json:"money_saved"`
	PointsPending int64                   `json:"points_pending"`
}

// GetLoyaltySummary returns balance + history + expiring-soon + the
// money-saved aggregate for a user.
func GetLoyaltySummary(ctx context.Context, userId string) (*LoyaltySummary, error) {
	settings, err := GetLoyaltySettings(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var balance UserLoyaltyPoints
	if err := db.WithContext(ctx).Where("user_id = ?", userId).First(&balance).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		balance = UserLoyaltyPoints{UserId: userId}
	}

	var history []*LoyaltyPointsHistory
	if err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("id DESC").Limit(100).
		Find(&history).Error; err != nil {
		return nil, err
	}

	soon := time.Now().AddDate(0, 1, 0)
	var expiringSoon int64
	if err := db.WithContext(ctx).Model(&LoyaltyPointsHistory{}).
		Where("user_id = ? AND transaction_type = ? AND is_expired = false AND expires_at IS NOT NULL AND expires_at <= ?",
			userId, PointsTransactionTypeEarned, soon).
		Select("COALESCE(SUM(points), 0)").
		Scan(&expiringSoon).Error; err != nil {
		return nil, err
	}

	moneySaved := decimal.NewFromInt(balance.TotalPointsRedeemed).
		Mul(decimal.NewFromFloat(settings.RedemptionValue))

	return &LoyaltySummary{
		Balance:       &balance,
		History:       history,
		ExpiringSoon:  expiringSoon,
		MoneySaved:    moneySaved,
		PointsPending: balance.PendingPoints,
	}, nil
}

// DeleteLoyaltyHistory is the explicit admin reset: wipes a user's ledger
// and balance row.
func DeleteLoyaltyHistory(ctx context.Context, userId string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireLoyaltyLock(tx, userId); err != nil {
			return err
		}
		defer ReleaseLoyaltyLock(tx, userId)

		if err := tx.WithContext(ctx).Where("user_id = ?", userId).Delete(&LoyaltyPointsHistory{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Where("user_id = ?", userId).Delete(&UserLoyaltyPoints{}).Error
	})
}
