package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const pointsExpiryLockKey = "lock:points-expiry"

// PointsExpiryWorker periodically retires loyalty points past their
// expiry date. A redis lock keeps concurrent replicas from running the
// sweep at the same time; the sweep itself is idempotent, so a lost
// lock only costs duplicate work, never duplicate expiry.
type PointsExpiryWorker struct {
	Logger   *logrus.Logger
	WorkerID string

	Interval time.Duration
	LockTTL  time.Duration
}

func NewPointsExpiryWorker(logger *logrus.Logger) *PointsExpiryWorker {
	return &PointsExpiryWorker{
		Logger:   logger,
		WorkerID: uuid.NewString(),
		Interval: time.Hour,
		LockTTL:  10 * time.Minute,
	}
}

func (w *PointsExpiryWorker) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.Interval):
		}
	}
}

// RunOnce performs a single sweep. Exported so one-shot jobs can reuse
// the same locking path as the resident worker.
func (w *PointsExpiryWorker) RunOnce(ctx context.Context) {
	logger := w.Logger
	if logger == nil {
		logger = config.GetLogger()
	}

	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, pointsExpiryLockKey, w.LockTTL, nil)
		if err == redislock.ErrNotObtained {
			logger.WithFields(logrus.Fields{
				"field":     "pointsExpiry",
				"worker_id": w.WorkerID,
			}).Info("another worker holds the expiry lock; skipping this cycle")
			return
		} else if err != nil {
			logger.WithFields(logrus.Fields{
				"field":     "pointsExpiry",
				"worker_id": w.WorkerID,
			}).Warn("error obtaining expiry lock; proceeding without it: " + err.Error())
			lock = nil
		}
	}
	defer func() {
		if lock == nil {
			return
		}
		if err := lock.Release(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"field":     "pointsExpiry",
				"worker_id": w.WorkerID,
			}).Warn("failed to release expiry lock: " + err.Error())
		}
	}()

	result, err := models.ExpirePoints(ctx)
	if err != nil {
		config.LogError(logger, "pointsExpiry.go", "RunOnce", "ExpirePoints", nil, err)
		return
	}
	if result.RowsExpired > 0 {
		logger.WithFields(logrus.Fields{
			"field":           "pointsExpiry",
			"users_processed": result.UsersProcessed,
			"rows_expired":    result.RowsExpired,
			"points_expired":  result.PointsExpired,
		}).Info("loyalty points expiry sweep completed")
	}
}
