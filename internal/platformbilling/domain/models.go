package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/money"
)

// ProfileID is the primary key of the singleton billing profile row.
const ProfileID = "platform"

// PlatformBillingProfile is the singleton holding the invoice series state.
// Only the invoice number allocator mutates it, always via an atomic
// increment; the row is created lazily with defaults on first allocation.
type PlatformBillingProfile struct {
	ID                string `gorm:"primaryKey;type:text"`
	InvoicePrefix     string `gorm:"type:text;not null"`
	InvoiceNextNumber int64  `gorm:"not null;default:1"`
	InvoicePadding    int    `gorm:"not null;default:5"`
	SeriesFormat      string `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PlatformBillingProfile) TableName() string { return "platform_billing_profiles" }

// PlatformInvoice is a billing-cycle invoice issued by the platform to a
// merchant. Immutable once the invoice number is assigned.
type PlatformInvoice struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	InvoiceNumber string       `gorm:"type:text;not null;uniqueIndex"`
	MerchantID    snowflake.ID `gorm:"not null;index"`

	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`

	PlatformFee    money.Paise `gorm:"not null"`
	GSTRatePercent int64       `gorm:"not null"`
	GSTAmount      money.Paise `gorm:"not null"`
	Total          money.Paise `gorm:"not null"`

	IssuedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID"`
}

// TableName sets the database table name.
func (PlatformInvoice) TableName() string { return "platform_invoices" }

type InvoiceLineItem struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	InvoiceID   snowflake.ID `gorm:"not null;index"`
	Description string       `gorm:"type:text;not null"`
	Amount      money.Paise  `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "platform_invoice_line_items" }

// CycleStatus tracks a merchant billing cycle through invoicing.
type CycleStatus string

const (
	CycleStatusPending  CycleStatus = "PENDING"
	CycleStatusInvoiced CycleStatus = "INVOICED"

	// CycleStatusSkipped marks a cycle with no billable fees; no invoice
	// row is ever created for it.
	CycleStatusSkipped CycleStatus = "SKIPPED"
)

// BillingCycle is one merchant billing period awaiting invoice generation.
type BillingCycle struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	MerchantID snowflake.ID `gorm:"not null;uniqueIndex:ux_billing_cycles_merchant_period,priority:1"`

	PeriodStart time.Time `gorm:"not null;uniqueIndex:ux_billing_cycles_merchant_period,priority:2"`
	PeriodEnd   time.Time `gorm:"not null"`

	Status    CycleStatus   `gorm:"type:text;not null;default:'PENDING';index"`
	InvoiceID *snowflake.ID

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingCycle) TableName() string { return "billing_cycles" }
