package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/money"
)

// EntryType tags what financial leg of an order a ledger row represents.
type EntryType string

const (
	EntryTypeGrossOrderValue EntryType = "GROSS_ORDER_VALUE"
	EntryTypePlatformFee     EntryType = "PLATFORM_FEE"
	EntryTypeOrderPayout     EntryType = "ORDER_PAYOUT"

	// Reversal legs written when an order is cancelled after its entries
	// already moved past PENDING. Corrections are new offsetting rows,
	// never edits.
	EntryTypeGrossReversal  EntryType = "GROSS_ORDER_VALUE_REVERSAL"
	EntryTypeFeeReversal    EntryType = "PLATFORM_FEE_REVERSAL"
	EntryTypePayoutReversal EntryType = "ORDER_PAYOUT_REVERSAL"
)

// EntryStatus follows the settlement lifecycle. Transitions are
// one-directional: PENDING -> PROCESSING -> SETTLED.
type EntryStatus string

const (
	EntryStatusPending    EntryStatus = "PENDING"
	EntryStatusProcessing EntryStatus = "PROCESSING"
	EntryStatusSettled    EntryStatus = "SETTLED"
)

// Entry is an append-only financial record tied to an order. The amount is
// signed paise: fees are negative, gross and payout legs positive. Amounts
// are never updated after creation; status is the only mutable column.
type Entry struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	MerchantID  snowflake.ID `gorm:"not null;index"`
	OrderID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_entries_order_type,priority:1"`
	Type        EntryType    `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_order_type,priority:2"`
	Amount      money.Paise  `gorm:"not null"`
	Status      EntryStatus  `gorm:"type:text;not null;default:'PENDING';index"`
	Description string       `gorm:"type:text;not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }
