package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/storekit/vendra/internal/clock"
	"github.com/storekit/vendra/internal/config"
	billingdomain "github.com/storekit/vendra/internal/platformbilling/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	BillingSvc billingdomain.Service
}

// Scheduler drives the billing-cycle invoice job: every tick it invoices the
// cycles whose grace window has passed. Safe to run on multiple instances;
// the cycle status transition is guarded by the database.
type Scheduler struct {
	log        *zap.Logger
	clock      clock.Clock
	interval   time.Duration
	billingSvc billingdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BillingSvc == nil {
		return nil, ErrInvalidConfig
	}
	interval := time.Duration(p.Config.Scheduler.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		clock:      p.Clock,
		interval:   interval,
		billingSvc: p.BillingSvc,
	}, nil
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	processed, err := s.billingSvc.ProcessDueCycles(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if processed > 0 {
		s.log.Info("billing cycles processed", zap.Int("count", processed))
	}
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
