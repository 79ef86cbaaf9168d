// Package fee computes the platform fee charged on an order. Everything in
// this package is pure: no clocks, no storage, no floating point. The same
// inputs always produce the same fee, which is what reconciliation against
// historical ledger rows depends on.
package fee

import "github.com/storekit/vendra/internal/money"

// Platform-wide fallbacks applied when a config field is unset. These are the
// only defaults in the system; call sites never carry their own.
const (
	DefaultVariableFeeBps = 200
	DefaultFixedFeePaise  = money.Paise(500)
	DefaultFeeCapPaise    = money.Paise(2500)
)

// Config is the fee parameter set for one computation. A nil field means
// "use the platform default". Constructed fresh per computation by the
// effective-config resolver; never persisted.
type Config struct {
	PercentageBps *int
	FlatFeePaise  *money.Paise
	MaxCapPaise   *money.Paise
}

type resolved struct {
	percentageBps int
	flatFeePaise  money.Paise
	maxCapPaise   money.Paise
}

func (c Config) withDefaults() resolved {
	out := resolved{
		percentageBps: DefaultVariableFeeBps,
		flatFeePaise:  DefaultFixedFeePaise,
		maxCapPaise:   DefaultFeeCapPaise,
	}
	if c.PercentageBps != nil {
		out.percentageBps = *c.PercentageBps
	}
	if c.FlatFeePaise != nil {
		out.flatFeePaise = *c.FlatFeePaise
	}
	if c.MaxCapPaise != nil {
		out.maxCapPaise = *c.MaxCapPaise
	}
	return out
}

// ComputeFee returns the platform fee for a gross order amount.
//
// The percentage leg rounds half away from zero, then the flat fee is added,
// then the cap is applied (cap 0 disables it). The result is clamped to
// [0, gross]: a fee can never exceed the amount it is charged against.
func ComputeFee(gross money.Paise, cfg Config) money.Paise {
	if gross <= 0 {
		return 0
	}
	r := cfg.withDefaults()

	f := money.RoundBps(gross, r.percentageBps) + r.flatFeePaise

	if r.maxCapPaise > 0 && f > r.maxCapPaise {
		f = r.maxCapPaise
	}
	if f > gross {
		f = gross
	}
	if f < 0 {
		f = 0
	}
	return f
}

// ComputeNetPayable returns what the merchant is owed after the platform fee.
// ComputeNetPayable(g, c) + ComputeFee(g, c) == g holds exactly.
func ComputeNetPayable(gross money.Paise, cfg Config) money.Paise {
	return gross - ComputeFee(gross, cfg)
}
