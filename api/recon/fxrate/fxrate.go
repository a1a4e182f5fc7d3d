package fxrate

import (
	"FlujoCorpSaas/internal/config"
)

// Outcome records which rate won the resolution chain. Every normalized
// amount keeps its outcome so reports can trace where a figure came from.
type Outcome string

const (
	OutcomeNative      Outcome = "native"      // already in the reporting currency
	OutcomeReal        Outcome = "real"        // recorded market rate
	OutcomeEstimated   Outcome = "estimated"   // provisional rate captured at order time
	OutcomeDefault     Outcome = "default"     // configured fallback constant
	OutcomeUnconverted Outcome = "unconverted" // no valid rate; amount left as-is
)

// Resolution is the audit record attached to every converted amount.
type Resolution struct {
	Rate    float64 `json:"rate"`
	Outcome Outcome `json:"outcome"`
}

// Converted reports whether a valid rate was applied.
func (r Resolution) Converted() bool {
	return r.Outcome != OutcomeUnconverted
}

// ValidRate rejects missing rates and the known-invalid sentinels. Upstream
// capture tools write 0 or 1.0 where no rate was available, so both are
// placeholders, never a usable conversion factor. A genuine 1:1 rate would
// be rejected too; the audit outcome makes that visible rather than silent.
func ValidRate(rate *float64) bool {
	if rate == nil {
		return false
	}
	return *rate != 0 && *rate != 1.0
}

// Resolve walks the fallback chain: real rate, then estimated, then the
// configured default. defaultRate of 0 disables the last step.
func Resolve(real, estimated *float64, defaultRate float64) Resolution {
	if ValidRate(real) {
		return Resolution{Rate: *real, Outcome: OutcomeReal}
	}
	if ValidRate(estimated) {
		return Resolution{Rate: *estimated, Outcome: OutcomeEstimated}
	}
	if defaultRate != 0 && defaultRate != 1.0 {
		return Resolution{Rate: defaultRate, Outcome: OutcomeDefault}
	}
	return Resolution{Outcome: OutcomeUnconverted}
}

// Normalize converts an amount into the reporting currency. Rates are
// recorded as foreign units per reporting unit, so conversion is amount/rate.
// Amounts already in the reporting currency pass through untouched, and an
// unresolved chain returns the amount unconverted with the outcome flagged.
func Normalize(amount float64, currency string, real, estimated *float64, defaultRate float64) (float64, Resolution) {
	if currency == config.ReportingCurrency {
		return amount, Resolution{Rate: 1, Outcome: OutcomeNative}
	}
	res := Resolve(real, estimated, defaultRate)
	if !res.Converted() {
		return amount, res
	}
	return amount / res.Rate, res
}
