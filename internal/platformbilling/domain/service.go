package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/money"
	"gorm.io/gorm"
)

// PeriodFees is the aggregation result for one merchant and window. All
// values are zero when no qualifying orders exist; that is a valid result,
// not an error.
type PeriodFees struct {
	PlatformFee money.Paise
	GSTAmount   money.Paise
	Total       money.Paise
}

type Service interface {
	// AllocateInvoiceNumber mints the next invoice number from the
	// singleton billing profile. Concurrency-safe across processes; two
	// callers never receive the same number.
	AllocateInvoiceNumber(ctx context.Context) (string, error)

	// AllocateInvoiceNumberTx is AllocateInvoiceNumber inside the caller's
	// transaction.
	AllocateInvoiceNumberTx(ctx context.Context, tx *gorm.DB) (string, error)

	// ComputeFeesForPeriod sums the frozen platform fees of the merchant's
	// PAID, non-cancelled orders created inside [periodStart, periodEnd]
	// and derives GST on top.
	ComputeFeesForPeriod(ctx context.Context, merchantID snowflake.ID, periodStart, periodEnd time.Time) (PeriodFees, error)

	// OpenCycle registers a billing period for later invoice generation.
	OpenCycle(ctx context.Context, merchantID snowflake.ID, periodStart, periodEnd time.Time) (BillingCycle, error)

	// GenerateCycleInvoice aggregates the cycle's fees, allocates an
	// invoice number and persists the immutable invoice with line items.
	// A cycle without billable fees is marked SKIPPED and returns
	// ErrNothingToInvoice.
	GenerateCycleInvoice(ctx context.Context, cycleID snowflake.ID) (PlatformInvoice, error)

	// ProcessDueCycles invoices every PENDING cycle whose period ended at
	// least the configured grace days before now. Returns how many cycles
	// were handled. Used by the billing scheduler.
	ProcessDueCycles(ctx context.Context, now time.Time) (int, error)

	// ListInvoices returns a merchant's invoices, newest first.
	ListInvoices(ctx context.Context, merchantID snowflake.ID) ([]PlatformInvoice, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidPeriod   = errors.New("invalid_billing_period")
	ErrCycleNotFound   = errors.New("billing_cycle_not_found")
	ErrCycleNotPending = errors.New("billing_cycle_not_pending")
	ErrCycleExists     = errors.New("billing_cycle_exists")

	// ErrNothingToInvoice marks a cycle whose window produced zero fees.
	ErrNothingToInvoice = errors.New("nothing_to_invoice")

	// ErrInvoiceAllocationFailed is returned when the profile increment
	// exceeded its timeout under lock contention.
	ErrInvoiceAllocationFailed = errors.New("invoice_number_allocation_failed")
)
