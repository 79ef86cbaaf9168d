package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storekit/vendra/internal/config"
	obsmetrics "github.com/storekit/vendra/internal/observability/metrics"
	ordernumberdomain "github.com/storekit/vendra/internal/ordernumber/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Platform   *config.PlatformConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	platform   *config.PlatformConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ordernumberdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ordernumber.service"),
		platform:   p.Platform,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Allocate(ctx context.Context, date time.Time) (string, error) {
	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = s.AllocateTx(ctx, tx, date)
		return err
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// AllocateTx performs the single atomic read-modify-write against the counter
// row: insert the bucket at 1 if absent, otherwise increment, returning the
// new value in the same statement. No caller ever observes an intermediate
// value, so two concurrent allocations cannot share a sequence number.
func (s *Service) AllocateTx(ctx context.Context, tx *gorm.DB, date time.Time) (string, error) {
	platform := s.platform.Get()

	key := bucketKey(platform.OrderNumberPrefix, date)

	timeout := time.Duration(platform.CounterTimeoutSeconds) * time.Second
	allocCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now().UTC()
	var value int64
	err := tx.WithContext(allocCtx).Raw(
		`INSERT INTO order_number_counters (counter_key, value, created_at, updated_at)
		 VALUES (?, 1, ?, ?)
		 ON CONFLICT (counter_key)
		 DO UPDATE SET value = order_number_counters.value + 1, updated_at = ?
		 RETURNING value`,
		key,
		now,
		now,
		now,
	).Scan(&value).Error
	if err != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.AllocationFailures.Inc()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(allocCtx.Err(), context.DeadlineExceeded) {
			s.log.Warn("order number allocation timed out",
				zap.String("bucket", key),
				zap.Duration("timeout", timeout))
			return "", fmt.Errorf("%w: %v", ordernumberdomain.ErrAllocationFailed, err)
		}
		return "", err
	}
	if value <= 0 {
		return "", fmt.Errorf("%w: counter returned %d", ordernumberdomain.ErrAllocationFailed, value)
	}

	if s.obsMetrics != nil {
		s.obsMetrics.OrderNumbersIssued.Inc()
	}
	return fmt.Sprintf("%s-%06d", key, value), nil
}

// bucketKey computes the per-month counter key, e.g. "ORD-2602" for Feb 2026.
// Buckets never reset mid-month; a new month naturally starts a new row at 1.
func bucketKey(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, date.UTC().Format("0601"))
}
