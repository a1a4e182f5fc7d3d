package fxrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestResolveFallbackOrder(t *testing.T) {
	// A zeroed real rate must never win; the estimated rate takes over.
	res := Resolve(f(0), f(15.2), 20.0)
	assert.Equal(t, OutcomeEstimated, res.Outcome)
	assert.Equal(t, 15.2, res.Rate)

	res = Resolve(f(17.35), f(15.2), 20.0)
	assert.Equal(t, OutcomeReal, res.Outcome)
	assert.Equal(t, 17.35, res.Rate)

	res = Resolve(nil, nil, 20.0)
	assert.Equal(t, OutcomeDefault, res.Outcome)
	assert.Equal(t, 20.0, res.Rate)

	res = Resolve(nil, nil, 0)
	assert.Equal(t, OutcomeUnconverted, res.Outcome)
	assert.False(t, res.Converted())
}

func TestSentinelRatesRejected(t *testing.T) {
	assert.False(t, ValidRate(nil))
	assert.False(t, ValidRate(f(0)))
	assert.False(t, ValidRate(f(1.0)))
	assert.True(t, ValidRate(f(0.99)))
	assert.True(t, ValidRate(f(20.0)))

	// real=1.0 is a placeholder, not a parity rate: the estimate wins and
	// 100 MXN at 20 MXN/USD is 5 USD, not 100.
	amount, res := Normalize(100, "MXN", f(1.0), f(20.0), 20.0)
	require.Equal(t, OutcomeEstimated, res.Outcome)
	assert.InDelta(t, 5.0, amount, 0.0001)
}

func TestNormalizeNativeCurrency(t *testing.T) {
	amount, res := Normalize(123.45, "USD", f(0), nil, 0)
	assert.Equal(t, 123.45, amount)
	assert.Equal(t, OutcomeNative, res.Outcome)
}

func TestNormalizeUnconvertedKeepsAmount(t *testing.T) {
	amount, res := Normalize(250, "MXN", f(0), f(1.0), 0)
	assert.Equal(t, 250.0, amount)
	assert.Equal(t, OutcomeUnconverted, res.Outcome)
}
