package leadtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlujoCorpSaas/api/recon/records"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dp(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestSupplierAverages(t *testing.T) {
	history := []records.Purchase{
		{PurchaseID: "C-1", Supplier: "Qingdao Chem", OrderDate: date(2024, 1, 1), ShipReal: dp(2024, 1, 21), ArrivalReal: dp(2024, 1, 31)},
		{PurchaseID: "C-2", Supplier: "Qingdao Chem", OrderDate: date(2024, 2, 1), ShipReal: dp(2024, 2, 25), ArrivalReal: dp(2024, 3, 10)},
		// negative delta: excluded from the mean, flagged as data error
		{PurchaseID: "C-3", Supplier: "Qingdao Chem", OrderDate: date(2024, 3, 10), ShipReal: dp(2024, 3, 1)},
		// beyond the sanity bound: excluded too
		{PurchaseID: "C-4", Supplier: "Qingdao Chem", OrderDate: date(2023, 1, 1), ShipReal: dp(2023, 12, 1)},
		// incomplete: no real dates, contributes nothing
		{PurchaseID: "C-5", Supplier: "Qingdao Chem", OrderDate: date(2024, 4, 1)},
	}

	avgs, summary := SupplierAverages(history)
	require.Contains(t, avgs, "Qingdao Chem")
	a := avgs["Qingdao Chem"]
	assert.InDelta(t, 22.0, a.ProductionDays, 0.001) // (20+24)/2
	assert.InDelta(t, 12.0, a.TransportDays, 0.001)  // (10+14)/2
	assert.Equal(t, 2, a.ProductionSamples)
	assert.Equal(t, 2, a.TransportSamples)

	counts := summary.Counts()
	assert.Equal(t, 2, counts[records.FlagNegativeLead])
	assert.Equal(t, 5, summary.Processed)
}

func TestEstimateDates(t *testing.T) {
	est := EstimateDates(date(2024, 1, 1), Averages{ProductionDays: 20, TransportDays: 10})
	assert.Equal(t, date(2024, 1, 21), est.Ship)
	assert.Equal(t, date(2024, 1, 31), est.Arrival)
	assert.Equal(t, date(2024, 2, 15), est.Destination)
}

func TestRealShipDatePrecedence(t *testing.T) {
	real := dp(2024, 1, 18)
	estimated := dp(2024, 1, 25)

	due := DueDate(real, estimated, 30)
	require.NotNil(t, due)
	assert.Equal(t, date(2024, 2, 17), *due)

	// Estimates are only a fallback.
	due = DueDate(nil, estimated, 30)
	require.NotNil(t, due)
	assert.Equal(t, date(2024, 2, 24), *due)
}

func TestDueDateUndefined(t *testing.T) {
	assert.Nil(t, DueDate(nil, nil, 30))
	assert.Nil(t, DueDate(dp(2024, 1, 18), nil, 0))
	assert.Nil(t, DueDate(dp(2024, 1, 18), nil, -15))
}
