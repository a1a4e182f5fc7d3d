package kpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlujoCorpSaas/api/recon/aging"
	"FlujoCorpSaas/api/recon/records"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dp(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func fixture() ([]records.Order, []records.Invoice, []records.Collection, []records.CFDIRelation, []records.Purchase) {
	orders := []records.Order{
		{OrderID: "O-1", Folio: "A100", OrderDate: date(2024, 3, 1), NetAmount: 500, CreditTermDays: 30},
		{OrderID: "O-2", Folio: "A101", OrderDate: date(2024, 3, 10), NetAmount: 300, CreditTermDays: 30},
		{OrderID: "O-3", Folio: "A102", OrderDate: date(2024, 4, 2), NetAmount: 900, CreditTermDays: 60},
	}
	invoices := []records.Invoice{
		{InvoiceID: "F-1", Folio: "A100", UUID: "u-1", IssueDate: date(2024, 3, 5), TotalAmount: 580},
		{InvoiceID: "F-2", Folio: "A101", UUID: "u-2", IssueDate: date(2024, 3, 12), TotalAmount: 348},
		{InvoiceID: "F-3", Folio: "A102", UUID: "u-3", IssueDate: date(2024, 4, 4), TotalAmount: 1044},
	}
	collections := []records.Collection{
		{CollectionID: "P-1", InvoiceUUID: "u-1", AmountPaid: 580, PaymentDate: date(2024, 4, 1)},
		{CollectionID: "P-2", InvoiceUUID: "u-2", AmountPaid: 100, PaymentDate: date(2024, 4, 20)},
	}
	purchases := []records.Purchase{
		{PurchaseID: "C-1", Supplier: "Qingdao Chem", OrderDate: date(2024, 1, 1), ShipReal: dp(2024, 1, 21), ArrivalReal: dp(2024, 1, 31)},
	}
	return orders, invoices, collections, nil, purchases
}

func TestAggregateTotalsAndStatuses(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	snap, err := Aggregate(records.Filter{}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)

	assert.InDelta(t, 580+348+1044, snap.TotalInvoiced, 0.01)
	assert.InDelta(t, 680, snap.TotalCollected, 0.01)
	assert.Equal(t, 1, snap.OrdersSettled)
	assert.Equal(t, 1, snap.OrdersPartial)
	assert.Equal(t, 1, snap.OrdersUnsettled)

	// O-2: due 2024-04-11 (issue+30), outstanding past due at 2024-06-01.
	// O-3: due 2024-06-03, not yet due.
	partialOutstanding := 300 * (1 - 100.0/348.0)
	assert.InDelta(t, partialOutstanding, snap.ExpectedUncollected, 0.01)
	assert.InDelta(t, 900, snap.Aging.Buckets[aging.BucketNotYetDue], 0.01)

	require.Contains(t, snap.SupplierLeadTimes, "Qingdao Chem")
	assert.InDelta(t, 20, snap.SupplierLeadTimes["Qingdao Chem"].ProductionDays, 0.001)
}

func TestAggregateMonthYearFilter(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	snap, err := Aggregate(records.Filter{Month: 3, Year: 2024}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)

	// Only the two March orders and invoices survive the filter.
	assert.Len(t, snap.Allocations, 2)
	assert.InDelta(t, 580+348, snap.TotalInvoiced, 0.01)
	// Collections follow their invoices even when paid in April.
	assert.InDelta(t, 680, snap.TotalCollected, 0.01)
}

func TestAggregateOrderIDFilterANDSemantics(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	snap, err := Aggregate(records.Filter{OrderIDs: []string{"O-1", "O-3"}, Month: 3, Year: 2024}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)

	// O-3 is April, so only O-1 matches both criteria.
	require.Len(t, snap.Allocations, 1)
	assert.Equal(t, "O-1", snap.Allocations[0].OrderID)
}

func TestAggregateWeeklyCashFlow(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	snap, err := Aggregate(records.Filter{}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)

	require.NotEmpty(t, snap.WeeklyCashFlow)
	// O-2 due 2024-04-11 (week 15), O-3 due 2024-06-03 (week 23).
	assert.Equal(t, "2024-W15", snap.WeeklyCashFlow[0].Week)
	assert.Equal(t, "2024-W23", snap.WeeklyCashFlow[1].Week)
	assert.InDelta(t, 900, snap.WeeklyCashFlow[1].Outstanding, 0.01)
}

func TestFilterRecordsCollectionDisposition(t *testing.T) {
	orders, invoices, collections, cfdis, _ := fixture()
	// Settles the April invoice: under a March filter it is out of period,
	// not orphaned, and must drop without a trace.
	collections = append(collections, records.Collection{CollectionID: "P-3", InvoiceUUID: "u-3", AmountPaid: 200, PaymentDate: date(2024, 5, 1)})
	// References a UUID no invoice carries: must survive the filter so the
	// allocator can report it.
	collections = append(collections, records.Collection{CollectionID: "P-4", InvoiceUUID: "no-such-uuid", AmountPaid: 50, PaymentDate: date(2024, 5, 2)})

	keptOrders, keptInvoices, keptCollections, _ := FilterRecords(records.Filter{Month: 3, Year: 2024}, orders, invoices, collections, cfdis)
	assert.Len(t, keptOrders, 2)
	assert.Len(t, keptInvoices, 2)

	ids := make([]string, 0, len(keptCollections))
	for _, c := range keptCollections {
		ids = append(ids, c.CollectionID)
	}
	assert.ElementsMatch(t, []string{"P-1", "P-2", "P-4"}, ids)
}

func TestAggregateFilteredKeepsOrphanFlags(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	collections = append(collections,
		records.Collection{CollectionID: "P-3", InvoiceUUID: "u-3", AmountPaid: 200, PaymentDate: date(2024, 5, 1)},
		records.Collection{CollectionID: "P-4", InvoiceUUID: "no-such-uuid", AmountPaid: 50, PaymentDate: date(2024, 5, 2)},
	)

	snap, err := Aggregate(records.Filter{Month: 3, Year: 2024}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)

	// Exactly one orphan (P-4); the out-of-period P-3 contributes neither
	// a flag nor collected cash.
	assert.Equal(t, 1, snap.Summary.Counts()[records.FlagOrphanPayment])
	assert.InDelta(t, 680, snap.TotalCollected, 0.01)
}

func TestAggregateIdempotent(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	first, err := Aggregate(records.Filter{}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)
	second, err := Aggregate(records.Filter{}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateRejectsMalformedRecords(t *testing.T) {
	orders, invoices, collections, cfdis, purchases := fixture()
	orders[0].OrderID = ""
	_, err := Aggregate(records.Filter{}, date(2024, 6, 1), orders, invoices, collections, cfdis, purchases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
