package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/fee"
	merchantdomain "github.com/storekit/vendra/internal/merchant/domain"
	"github.com/storekit/vendra/internal/money"
)

// EffectiveFeeConfig is the resolved fee view for one merchant: override
// field if set, else package field, else platform default. It is recomputed
// on every read and never persisted.
type EffectiveFeeConfig struct {
	FixedFeePaise  money.Paise
	VariableFeeBps int
	FeeCapPaise    money.Paise
	PayoutFreq     merchantdomain.PayoutFrequency
	HoldbackBps    int
	IsPayoutHold   bool

	SourcePackageID   *snowflake.ID
	SourcePackageName string
}

// FeeConfig converts the resolved view into calculator input.
func (c EffectiveFeeConfig) FeeConfig() fee.Config {
	bps := c.VariableFeeBps
	flat := c.FixedFeePaise
	cap := c.FeeCapPaise
	return fee.Config{
		PercentageBps: &bps,
		FlatFeePaise:  &flat,
		MaxCapPaise:   &cap,
	}
}
