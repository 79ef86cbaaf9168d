package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PayoutFrequency controls how often accumulated net payable is settled.
type PayoutFrequency string

const (
	PayoutFrequencyWeekly PayoutFrequency = "WEEKLY"
	PayoutFrequencyDaily  PayoutFrequency = "DAILY"
	PayoutFrequencyManual PayoutFrequency = "MANUAL"
)

// Merchant is a tenant storefront owner.
type Merchant struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	Name      string        `gorm:"type:text;not null"`
	PackageID *snowflake.ID `gorm:"index"`
	IsActive  bool          `gorm:"not null;default:true"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Merchant) TableName() string { return "merchants" }

// PricingPackage is a platform-defined fee plan merchants are assigned to.
// Amounts are paise; percentages are basis points (100 bps = 1%).
type PricingPackage struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	Name           string          `gorm:"type:text;not null"`
	FixedFeePaise  int64           `gorm:"not null;default:0"`
	VariableFeeBps int             `gorm:"not null;default:0"`
	FeeCapPaise    int64           `gorm:"not null;default:0"`
	PayoutFreq     PayoutFrequency `gorm:"type:text;not null;default:'WEEKLY'"`
	HoldbackBps    int             `gorm:"not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PricingPackage) TableName() string { return "pricing_packages" }

// MerchantFeeOverride holds per-merchant fee parameters. A nil field means
// "inherit from the package"; a set field wins over the package value.
type MerchantFeeOverride struct {
	ID             snowflake.ID     `gorm:"primaryKey"`
	MerchantID     snowflake.ID     `gorm:"not null;uniqueIndex"`
	FixedFeePaise  *int64
	VariableFeeBps *int
	FeeCapPaise    *int64
	PayoutFreq     *PayoutFrequency `gorm:"type:text"`
	HoldbackBps    *int
	IsPayoutHold   *bool
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MerchantFeeOverride) TableName() string { return "merchant_fee_overrides" }
