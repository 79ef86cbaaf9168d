package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/money"
	"gorm.io/gorm"
)

// OrderFinancials is the computed money breakdown the generator derives
// entries from. Values are frozen at order placement.
type OrderFinancials struct {
	MerchantID  snowflake.ID
	OrderID     snowflake.ID
	OrderNumber string
	GrossAmount money.Paise
	PlatformFee money.Paise
	NetPayable  money.Paise
}

type Service interface {
	// GenerateEntriesTx writes the three PENDING legs for a freshly placed
	// order inside the caller's transaction: +gross, -fee, +net.
	GenerateEntriesTx(ctx context.Context, tx *gorm.DB, order OrderFinancials) ([]Entry, error)

	// ListByOrder returns the entries tagged to one order, oldest first.
	ListByOrder(ctx context.Context, orderID snowflake.ID) ([]Entry, error)

	// TransitionStatus advances every entry of an order from one status to
	// the next. Driven by payment/payout webhooks; one-directional.
	TransitionStatus(ctx context.Context, orderID snowflake.ID, from, to EntryStatus) error

	// TransitionStatusTx is TransitionStatus inside the caller's
	// transaction, so the order row and its entries move together.
	TransitionStatusTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, from, to EntryStatus) error

	// ReverseEntries appends offsetting rows for an order cancelled after
	// its entries left PENDING. The original rows are untouched.
	ReverseEntries(ctx context.Context, orderID snowflake.ID, reason string) error

	// ReverseEntriesTx is ReverseEntries inside the caller's transaction.
	ReverseEntriesTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, reason string) error

	// SettlementTotals sums net payable still owed to a merchant for
	// entries in the given status over a window.
	SettlementTotals(ctx context.Context, merchantID snowflake.ID, status EntryStatus, from, to time.Time) (money.Paise, error)
}

var (
	ErrInvalidOrder   = errors.New("invalid_order")
	ErrEntriesExist   = errors.New("ledger_entries_exist")
	ErrEntriesMissing = errors.New("ledger_entries_missing")

	// ErrInvalidTransition guards the one-way status machine; there are no
	// reverse transitions, cancellations become offsetting entries instead.
	ErrInvalidTransition = errors.New("invalid_ledger_transition")

	// ErrMoneyInvariant marks a breakdown where gross - fee != net. That is
	// a programmer error upstream, never silently coerced here.
	ErrMoneyInvariant = errors.New("money_invariant_violation")
)

// validTransitions is the full one-directional status machine.
var validTransitions = map[EntryStatus]EntryStatus{
	EntryStatusPending:    EntryStatusProcessing,
	EntryStatusProcessing: EntryStatusSettled,
}

// CanTransition reports whether from -> to is a legal status move.
func CanTransition(from, to EntryStatus) bool {
	next, ok := validTransitions[from]
	return ok && next == to
}
