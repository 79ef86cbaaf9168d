package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Resolve returns the effective fee configuration for a merchant.
	// Missing package or override rows fall back to platform defaults;
	// only storage failures surface as errors.
	Resolve(ctx context.Context, merchantID snowflake.ID) (EffectiveFeeConfig, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
)
