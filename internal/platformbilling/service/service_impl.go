package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/clock"
	"github.com/storekit/vendra/internal/config"
	"github.com/storekit/vendra/internal/money"
	obsmetrics "github.com/storekit/vendra/internal/observability/metrics"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
	billingdomain "github.com/storekit/vendra/internal/platformbilling/domain"
	"github.com/storekit/vendra/internal/platformbilling/format"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Platform   *config.PlatformConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	platform   *config.PlatformConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("platformbilling.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		platform:   p.Platform,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) AllocateInvoiceNumber(ctx context.Context) (string, error) {
	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = s.AllocateInvoiceNumberTx(ctx, tx)
		return err
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// profileRow is the post-increment profile state returned by the claim
// statement.
type profileRow struct {
	InvoiceNextNumber int64
	InvoicePrefix     string
	InvoicePadding    int
	SeriesFormat      string
}

// AllocateInvoiceNumberTx lazily creates the singleton profile, then claims
// the next sequence value with a single increment-returning statement. The
// claimed value is next_number - 1 of what comes back: the column always
// holds the number the following caller will receive.
func (s *Service) AllocateInvoiceNumberTx(ctx context.Context, tx *gorm.DB) (string, error) {
	platform := s.platform.Get()

	timeout := time.Duration(platform.CounterTimeoutSeconds) * time.Second
	allocCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := s.clock.Now()
	err := tx.WithContext(allocCtx).Exec(
		`INSERT INTO platform_billing_profiles (
			id, invoice_prefix, invoice_next_number, invoice_padding, series_format, created_at, updated_at
		) VALUES (?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		billingdomain.ProfileID,
		platform.InvoicePrefix,
		platform.InvoiceSequencePadding,
		platform.InvoiceSeriesFormat,
		now,
		now,
	).Error
	if err != nil {
		return "", err
	}

	var row profileRow
	err = tx.WithContext(allocCtx).Raw(
		`UPDATE platform_billing_profiles
		 SET invoice_next_number = invoice_next_number + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING invoice_next_number, invoice_prefix, invoice_padding, series_format`,
		now,
		billingdomain.ProfileID,
	).Scan(&row).Error
	if err != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.AllocationFailures.Inc()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(allocCtx.Err(), context.DeadlineExceeded) {
			s.log.Warn("invoice number allocation timed out",
				zap.Duration("timeout", timeout))
			return "", fmt.Errorf("%w: %v", billingdomain.ErrInvoiceAllocationFailed, err)
		}
		return "", err
	}
	seq := row.InvoiceNextNumber - 1
	if seq <= 0 {
		return "", fmt.Errorf("%w: profile returned %d", billingdomain.ErrInvoiceAllocationFailed, row.InvoiceNextNumber)
	}

	series := row.SeriesFormat
	if !format.HasSequenceToken(series) {
		s.log.Warn("series format lacks sequence token, using default",
			zap.String("series_format", series))
		series = format.DefaultSeriesFormat
	}
	return format.Render(series, row.InvoicePrefix, s.clock.Now(), seq, row.InvoicePadding), nil
}

func (s *Service) ComputeFeesForPeriod(ctx context.Context, merchantID snowflake.ID, periodStart, periodEnd time.Time) (billingdomain.PeriodFees, error) {
	return s.computeFeesForPeriod(ctx, s.db, merchantID, periodStart, periodEnd)
}

func (s *Service) computeFeesForPeriod(ctx context.Context, tx *gorm.DB, merchantID snowflake.ID, periodStart, periodEnd time.Time) (billingdomain.PeriodFees, error) {
	if merchantID == 0 {
		return billingdomain.PeriodFees{}, billingdomain.ErrInvalidMerchant
	}
	if periodEnd.Before(periodStart) {
		return billingdomain.PeriodFees{}, billingdomain.ErrInvalidPeriod
	}

	// The frozen per-order fee is summed as stored; it is never recomputed
	// from the merchant's current config.
	var fee int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(platform_fee), 0)
		 FROM orders
		 WHERE merchant_id = ?
		 AND payment_status = ?
		 AND stage <> ?
		 AND created_at >= ? AND created_at <= ?`,
		merchantID,
		string(orderdomain.PaymentStatusPaid),
		string(orderdomain.StageCancelled),
		periodStart.UTC(),
		periodEnd.UTC(),
	).Scan(&fee).Error
	if err != nil {
		return billingdomain.PeriodFees{}, err
	}

	platformFee := money.Paise(fee)
	gst := money.RoundPercent(platformFee, s.platform.Get().GSTRatePercent)
	return billingdomain.PeriodFees{
		PlatformFee: platformFee,
		GSTAmount:   gst,
		Total:       platformFee + gst,
	}, nil
}

func (s *Service) OpenCycle(ctx context.Context, merchantID snowflake.ID, periodStart, periodEnd time.Time) (billingdomain.BillingCycle, error) {
	if merchantID == 0 {
		return billingdomain.BillingCycle{}, billingdomain.ErrInvalidMerchant
	}
	if !periodEnd.After(periodStart) {
		return billingdomain.BillingCycle{}, billingdomain.ErrInvalidPeriod
	}

	now := s.clock.Now()
	cycle := billingdomain.BillingCycle{
		ID:          s.genID.Generate(),
		MerchantID:  merchantID,
		PeriodStart: periodStart.UTC(),
		PeriodEnd:   periodEnd.UTC(),
		Status:      billingdomain.CycleStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result := s.db.WithContext(ctx).Exec(
		`INSERT INTO billing_cycles (
			id, merchant_id, period_start, period_end, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (merchant_id, period_start) DO NOTHING`,
		cycle.ID,
		cycle.MerchantID,
		cycle.PeriodStart,
		cycle.PeriodEnd,
		string(cycle.Status),
		cycle.CreatedAt,
		cycle.UpdatedAt,
	)
	if result.Error != nil {
		return billingdomain.BillingCycle{}, result.Error
	}
	if result.RowsAffected == 0 {
		return billingdomain.BillingCycle{}, billingdomain.ErrCycleExists
	}
	return cycle, nil
}

// GenerateCycleInvoice turns one due cycle into an immutable invoice. The
// aggregate, the invoice number and the invoice rows commit together; a
// crash mid-way leaves the cycle PENDING and the next run redoes it whole.
func (s *Service) GenerateCycleInvoice(ctx context.Context, cycleID snowflake.ID) (billingdomain.PlatformInvoice, error) {
	var invoice billingdomain.PlatformInvoice
	var skipped bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cycle billingdomain.BillingCycle
		err := tx.WithContext(ctx).Raw(
			`SELECT * FROM billing_cycles WHERE id = ?`,
			cycleID,
		).Scan(&cycle).Error
		if err != nil {
			return err
		}
		if cycle.ID == 0 {
			return billingdomain.ErrCycleNotFound
		}
		if cycle.Status != billingdomain.CycleStatusPending {
			return billingdomain.ErrCycleNotPending
		}

		fees, err := s.computeFeesForPeriod(ctx, tx, cycle.MerchantID, cycle.PeriodStart, cycle.PeriodEnd)
		if err != nil {
			return err
		}
		if fees.PlatformFee == 0 {
			// Returning an error here would roll the status change back,
			// so the skip is signalled outside the closure instead.
			skipped = true
			return s.setCycleStatus(ctx, tx, cycle.ID, billingdomain.CycleStatusSkipped, nil)
		}

		number, err := s.AllocateInvoiceNumberTx(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		invoice = billingdomain.PlatformInvoice{
			ID:            s.genID.Generate(),
			InvoiceNumber: number,
			MerchantID:    cycle.MerchantID,

			PeriodStart: cycle.PeriodStart,
			PeriodEnd:   cycle.PeriodEnd,

			PlatformFee:    fees.PlatformFee,
			GSTRatePercent: s.platform.Get().GSTRatePercent,
			GSTAmount:      fees.GSTAmount,
			Total:          fees.Total,

			IssuedAt:  now,
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).Omit("LineItems").Create(&invoice).Error; err != nil {
			return err
		}

		lineItems := []billingdomain.InvoiceLineItem{
			{
				ID:          s.genID.Generate(),
				InvoiceID:   invoice.ID,
				Description: fmt.Sprintf("Platform fees %s to %s", cycle.PeriodStart.Format("2006-01-02"), cycle.PeriodEnd.Format("2006-01-02")),
				Amount:      fees.PlatformFee,
				CreatedAt:   now,
			},
			{
				ID:          s.genID.Generate(),
				InvoiceID:   invoice.ID,
				Description: fmt.Sprintf("GST @ %d%%", invoice.GSTRatePercent),
				Amount:      fees.GSTAmount,
				CreatedAt:   now,
			},
		}
		if err := tx.WithContext(ctx).Create(&lineItems).Error; err != nil {
			return err
		}
		invoice.LineItems = lineItems

		return s.setCycleStatus(ctx, tx, cycle.ID, billingdomain.CycleStatusInvoiced, &invoice.ID)
	})
	if err != nil {
		return billingdomain.PlatformInvoice{}, err
	}
	if skipped {
		return billingdomain.PlatformInvoice{}, billingdomain.ErrNothingToInvoice
	}

	if s.obsMetrics != nil {
		s.obsMetrics.InvoicesIssued.Inc()
	}
	s.log.Info("platform invoice issued",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("merchant_id", invoice.MerchantID.String()),
		zap.Int64("total_paise", invoice.Total.Int64()))
	return invoice, nil
}

func (s *Service) setCycleStatus(ctx context.Context, tx *gorm.DB, cycleID snowflake.ID, status billingdomain.CycleStatus, invoiceID *snowflake.ID) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE billing_cycles
		 SET status = ?, invoice_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(status),
		invoiceID,
		s.clock.Now(),
		cycleID,
	).Error
}

// ProcessDueCycles drives the billing job: every PENDING cycle past its
// grace window gets invoiced or skipped. One cycle failing does not stop
// the rest.
func (s *Service) ProcessDueCycles(ctx context.Context, now time.Time) (int, error) {
	grace := time.Duration(s.platform.Get().BillingCycleGraceDays) * 24 * time.Hour
	cutoff := now.UTC().Add(-grace)

	var cycles []billingdomain.BillingCycle
	err := s.db.WithContext(ctx).
		Where("status = ? AND period_end <= ?", string(billingdomain.CycleStatusPending), cutoff).
		Order("period_end ASC").
		Find(&cycles).Error
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, cycle := range cycles {
		_, err := s.GenerateCycleInvoice(ctx, cycle.ID)
		switch {
		case err == nil, errors.Is(err, billingdomain.ErrNothingToInvoice):
			processed++
		default:
			s.log.Error("billing cycle invoice failed",
				zap.String("cycle_id", cycle.ID.String()),
				zap.String("merchant_id", cycle.MerchantID.String()),
				zap.Error(err))
		}
	}
	return processed, nil
}

func (s *Service) ListInvoices(ctx context.Context, merchantID snowflake.ID) ([]billingdomain.PlatformInvoice, error) {
	if merchantID == 0 {
		return nil, billingdomain.ErrInvalidMerchant
	}
	var invoices []billingdomain.PlatformInvoice
	err := s.db.WithContext(ctx).
		Preload("LineItems").
		Where("merchant_id = ?", merchantID).
		Order("issued_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
