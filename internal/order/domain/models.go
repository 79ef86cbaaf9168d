package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/money"
)

// Stage is the order lifecycle. CANCELLED is reachable from CREATED and
// CONFIRMED only; a settled order can never be cancelled.
type Stage string

const (
	StageCreated   Stage = "CREATED"
	StageConfirmed Stage = "CONFIRMED"
	StageSettled   Stage = "SETTLED"
	StageCancelled Stage = "CANCELLED"
)

// PaymentStatus tracks the customer payment independent of the stage.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Order carries the frozen money breakdown computed at placement. The fee is
// locked at computation time and never recomputed, even if the merchant's
// config changes later; period aggregation reads these frozen values.
type Order struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	MerchantID  snowflake.ID `gorm:"not null;index"`
	OrderNumber string       `gorm:"type:text;not null;uniqueIndex"`

	ItemsTotal     money.Paise `gorm:"not null"`
	ShippingFee    money.Paise `gorm:"not null;default:0"`
	TaxAmount      money.Paise `gorm:"not null;default:0"`
	DiscountAmount money.Paise `gorm:"not null;default:0"`

	GrossAmount money.Paise `gorm:"not null"`
	PlatformFee money.Paise `gorm:"not null"`
	NetPayable  money.Paise `gorm:"not null"`

	Stage         Stage         `gorm:"type:text;not null;default:'CREATED';index"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'PENDING';index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// CanCancel reports whether the stage still allows cancellation.
func (o Order) CanCancel() bool {
	return o.Stage == StageCreated || o.Stage == StageConfirmed
}
