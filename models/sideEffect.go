package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/google/uuid"
)

// SideEffectRecord captures a swallowed secondary-effect failure (loyalty
// awarding/redemption during order operations). The primary operation
// succeeds regardless; the failure stays queryable instead of living only
// in a log line.
type SideEffectRecord struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Operation     string    `gorm:"size:100;index;not null" json:"operation"`
	OrderId       *string   `gorm:"size:36;index" json:"order_id"`
	UserId        string    `gorm:"size:36;index" json:"user_id"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message"`
	Payload       []byte    `gorm:"type:json" json:"payload"`
	CorrelationId string    `gorm:"size:36;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RecordSideEffectFailure is itself best-effort: it must never fail the
// caller, so persistence errors only get logged.
func RecordSideEffectFailure(ctx context.Context, operation string, orderId *string, userId string, cause error, payload interface{}) {
	db := config.GetDB()
	logger := config.GetLogger()

	var payloadBytes []byte
	if payload != nil {
		payloadBytes, _ = json.Marshal(payload)
	}

	record := SideEffectRecord{
		Operation:     operation,
		OrderId:       orderId,
		UserId:        userId,
		ErrorMessage:  cause.Error(),
		Payload:       payloadBytes,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		config.LogError(logger, "sideEffect.go", "RecordSideEffectFailure", operation, payload, err)
	}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ListSideEffectFailures(ctx context.Context, orderId string) ([]*SideEffectRecord, error) {
	db := config.GetDB()
	var records []*SideEffectRecord
	q := db.WithContext(ctx)
	if orderId != "" {
		q = q.Where("order_id = ?", orderId)
	}
	if err := q.Order("id DESC").Limit(200).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
