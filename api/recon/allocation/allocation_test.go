package allocation

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

func TestProRataConservation(t *testing.T) {
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A100", UUID: "uuid-1", TotalAmount: 1000, IssueDate: date(2024, 3, 5)},
	}
	collections := []records.Collection{
		{CollectionID: "P-1", InvoiceUUID: "uuid-1", AmountPaid: 400, PaymentDate: date(2024, 4, 1)},
		{CollectionID: "P-2", InvoiceUUID: "uuid-1", AmountPaid: 200, PaymentDate: date(2024, 4, 15)},
	}
	orders := []records.Order{
		{OrderID: "O-1", Folio: "A100", NetAmount: 500, CreditTermDays: 30},
	}

	res := Allocate(collections, nil, invoices, orders)
	require.Len(t, res.Orders, 1)
	o := res.Orders[0]
	assert.InDelta(t, 0.6, o.Ratio, 0.0001)
	assert.InDelta(t, 300, o.Allocated, 0.01)
	assert.InDelta(t, 200, o.Outstanding, 0.01)
	assert.Equal(t, StatusPartial, o.Status)

	require.Len(t, res.Invoices, 1)
	assert.InDelta(t, 600, res.Invoices[0].Collected, 0.01)
	assert.Equal(t, 2, res.Invoices[0].Collections)
}

func TestAdvanceCreditsCountTowardSettlement(t *testing.T) {
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A200", UUID: "uuid-2", TotalAmount: 1000},
	}
	collections := []records.Collection{
		{CollectionID: "P-1", InvoiceUUID: "uuid-2", AmountPaid: 700},
	}
	cfdis := []records.CFDIRelation{
		{RelationID: "R-1", InvoiceUUID: "uuid-2", Amount: 300},
	}
	orders := []records.Order{
		{OrderID: "O-1", Folio: "A200", NetAmount: 250},
	}

	res := Allocate(collections, cfdis, invoices, orders)
	require.Len(t, res.Orders, 1)
	assert.InDelta(t, 1.0, res.Orders[0].Ratio, 0.0001)
	assert.Equal(t, StatusSettled, res.Orders[0].Status)
	assert.InDelta(t, 250, res.Orders[0].Allocated, 0.01)
}

func TestSettledThresholdBoundary(t *testing.T) {
	assert.Equal(t, StatusPartial, Classify(0.989, true))
	assert.Equal(t, StatusSettled, Classify(0.991, true))
	assert.Equal(t, StatusSettled, Classify(1.0, true))
	assert.Equal(t, StatusUnsettled, Classify(0, false))
	// A referenced invoice settled to zero (e.g. clamped garbage) is still
	// unsettled by amount.
	assert.Equal(t, StatusUnsettled, Classify(0, true))
}

func TestOverpaymentClampedAndFlagged(t *testing.T) {
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A300", UUID: "uuid-3", TotalAmount: 500},
	}
	collections := []records.Collection{
		{CollectionID: "P-1", InvoiceUUID: "uuid-3", AmountPaid: 800},
	}
	orders := []records.Order{
		{OrderID: "O-1", Folio: "A300", NetAmount: 500},
	}

	res := Allocate(collections, nil, invoices, orders)
	require.Len(t, res.Orders, 1)
	assert.InDelta(t, 1.0, res.Orders[0].Ratio, 0.0001)
	assert.InDelta(t, 500, res.Orders[0].Allocated, 0.01)
	assert.Equal(t, 1, res.Summary.Counts()[records.FlagExcessSettled])
}

func TestOrphansAndMissingInvoices(t *testing.T) {
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A400", UUID: "uuid-4", TotalAmount: 100},
	}
	collections := []records.Collection{
		{CollectionID: "P-1", InvoiceUUID: "no-such-uuid", AmountPaid: 50},
	}
	orders := []records.Order{
		{OrderID: "O-1", Folio: "TYPO-999", NetAmount: 80},
	}

	res := Allocate(collections, nil, invoices, orders)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, StatusUnsettled, res.Orders[0].Status)
	assert.Equal(t, 0.0, res.Orders[0].Ratio)
	assert.InDelta(t, 80, res.Orders[0].Outstanding, 0.01)

	counts := res.Summary.Counts()
	assert.Equal(t, 1, counts[records.FlagOrphanPayment])
	assert.Equal(t, 1, counts[records.FlagMissingInvoice])

	// The unmatched invoice still appears in aggregate detail.
	require.Len(t, res.Invoices, 1)
	assert.Equal(t, 0, res.Invoices[0].Orders)
}

func TestMultiOrderInvoiceMarkedApproximate(t *testing.T) {
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A500", UUID: "uuid-5", TotalAmount: 1000},
	}
	collections := []records.Collection{
		{CollectionID: "P-1", InvoiceUUID: "uuid-5", AmountPaid: 500},
	}
	orders := []records.Order{
		{OrderID: "O-1", Folio: "A500", NetAmount: 700},
		{OrderID: "O-2", Folio: "A500", NetAmount: 200},
	}

	res := Allocate(collections, nil, invoices, orders)
	require.Len(t, res.Orders, 2)
	for _, o := range res.Orders {
		assert.True(t, o.Approximate)
		assert.InDelta(t, 0.5, o.Ratio, 0.0001)
	}
	assert.InDelta(t, 350, res.Orders[0].Allocated, 0.01)
	assert.InDelta(t, 100, res.Orders[1].Allocated, 0.01)
}

func TestDueDateFromInvoiceIssueDate(t *testing.T) {
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A600", UUID: "uuid-6", TotalAmount: 100, IssueDate: date(2024, 5, 1)},
	}
	orders := []records.Order{
		{OrderID: "O-1", Folio: "A600", NetAmount: 100, CreditTermDays: 45},
		{OrderID: "O-2", Folio: "A600", NetAmount: 100, CreditTermDays: 0},
	}

	res := Allocate(nil, nil, invoices, orders)
	require.Len(t, res.Orders, 2)
	require.NotNil(t, res.Orders[0].DueDate)
	assert.Equal(t, date(2024, 6, 15), *res.Orders[0].DueDate)
	assert.Nil(t, res.Orders[1].DueDate)
}
