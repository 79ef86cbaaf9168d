// Package money defines the single minor-unit representation used for every
// monetary amount in the system. All arithmetic is integer arithmetic on
// paise; rupee values only exist at presentation boundaries.
package money

import "fmt"

// Paise is an amount in minor units (1 rupee = 100 paise). Fees recorded on
// the ledger carry a negative sign; everything else is non-negative.
type Paise int64

// FromRupees converts a whole-plus-fraction rupee pair to paise.
func FromRupees(rupees int64, paise int64) Paise {
	return Paise(rupees*100 + paise)
}

// Rupees returns the whole-rupee component, truncated toward zero.
func (p Paise) Rupees() int64 { return int64(p) / 100 }

// Int64 returns the raw minor-unit value.
func (p Paise) Int64() int64 { return int64(p) }

// Neg returns the additive inverse, used for fee legs on the ledger.
func (p Paise) Neg() Paise { return -p }

// String formats as rupees with two decimals, e.g. "123.45".
func (p Paise) String() string {
	v := int64(p)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// RoundBps applies basis points to an amount, rounding half away from zero.
// The positive-domain form reduces to round-half-up, matching how historical
// ledger rows were computed.
func RoundBps(amount Paise, bps int) Paise {
	return Paise((int64(amount)*int64(bps) + 5_000) / 10_000)
}

// RoundPercent applies a whole-number percentage, rounding half away from zero.
func RoundPercent(amount Paise, percent int64) Paise {
	return Paise((int64(amount)*percent + 50) / 100)
}
