package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// Allocate returns the next order number for the calendar-month bucket
	// the given date falls in, formatted PREFIX-YYMM-NNNNNN. Safe under
	// concurrent callers across processes; two callers never receive the
	// same value. Gaps are tolerated, monotonicity is not negotiable.
	Allocate(ctx context.Context, date time.Time) (string, error)

	// AllocateTx is Allocate running inside the caller's transaction, for
	// flows where the order number must commit together with the order row.
	AllocateTx(ctx context.Context, tx *gorm.DB, date time.Time) (string, error)
}

var (
	// ErrAllocationFailed is returned when the counter increment exceeded
	// its timeout under lock contention. The caller owns the retry decision
	// and should retry the whole order creation, not just the number.
	ErrAllocationFailed = errors.New("order_number_allocation_failed")
)
