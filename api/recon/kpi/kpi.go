package kpi

import (
	"fmt"
	"sort"
	"time"

	"FlujoCorpSaas/api/recon/aging"
	"FlujoCorpSaas/api/recon/allocation"
	"FlujoCorpSaas/api/recon/leadtime"
	"FlujoCorpSaas/api/recon/records"
)

// WeekProjection is the outstanding balance expected in one ISO week.
type WeekProjection struct {
	Week        string  `json:"week"` // e.g. "2024-W05"
	Year        int     `json:"year"`
	ISOWeek     int     `json:"iso_week"`
	Outstanding float64 `json:"outstanding"`
	Orders      int     `json:"orders"`
}

// Snapshot is one period-level KPI view. It is recomputed from the supplied
// record set on every call; nothing is cached between calls.
type Snapshot struct {
	AsOf                time.Time                    `json:"as_of"`
	Filter              records.Filter               `json:"filter"`
	TotalInvoiced       float64                      `json:"total_invoiced"`
	TotalCollected      float64                      `json:"total_collected"`
	TotalAdvances       float64                      `json:"total_advances"`
	ExpectedUncollected float64                      `json:"expected_uncollected"`
	OrdersSettled       int                          `json:"orders_settled"`
	OrdersPartial       int                          `json:"orders_partially_settled"`
	OrdersUnsettled     int                          `json:"orders_unsettled"`
	Aging               aging.Report                 `json:"aging"`
	WeeklyCashFlow      []WeekProjection             `json:"weekly_cash_flow"`
	SupplierLeadTimes   map[string]leadtime.Averages `json:"supplier_lead_times"`
	Allocations         []allocation.OrderAllocation `json:"allocations"`
	Summary             records.BatchSummary         `json:"summary"`
}

// validate rejects structurally broken record sets. One garbled row is a
// per-record flag elsewhere; a row with no primary identifier means the
// identifier column itself is missing and the whole batch is suspect, so an
// explicit error beats silently zeroed KPIs.
func validate(orders []records.Order, invoices []records.Invoice, collections []records.Collection, purchases []records.Purchase) error {
	for i, o := range orders {
		if o.OrderID == "" {
			return fmt.Errorf("order %d has no order id; record set is malformed", i)
		}
	}
	for i, inv := range invoices {
		if inv.InvoiceID == "" {
			return fmt.Errorf("invoice %d has no invoice id; record set is malformed", i)
		}
		if inv.Folio == "" && inv.UUID == "" {
			return fmt.Errorf("invoice %s has neither folio nor uuid; record set is malformed", inv.InvoiceID)
		}
	}
	for i, c := range collections {
		if c.CollectionID == "" {
			return fmt.Errorf("collection %d has no collection id; record set is malformed", i)
		}
	}
	for i, p := range purchases {
		if p.PurchaseID == "" {
			return fmt.Errorf("purchase %d has no purchase id; record set is malformed", i)
		}
	}
	return nil
}

// FilterRecords applies the period and order-id filter across the linked
// record sets. Orders filter by id set and order-date period; invoices by
// issue-date period; collections and CFDI advances follow the invoices they
// settle, so a payment received after the period still settles a period
// invoice. A payment referencing a UUID no invoice carries at all is kept
// so the allocator reports it as orphaned; a payment whose invoice exists
// but fell outside the period is dropped, not misreported as orphaned.
func FilterRecords(filter records.Filter, orders []records.Order, invoices []records.Invoice, collections []records.Collection, cfdis []records.CFDIRelation) ([]records.Order, []records.Invoice, []records.Collection, []records.CFDIRelation) {
	keptOrders := make([]records.Order, 0, len(orders))
	for _, o := range orders {
		if filter.MatchesOrderID(o.OrderID) && filter.MatchesDate(o.OrderDate) {
			keptOrders = append(keptOrders, o)
		}
	}

	known := make(map[string]bool, len(invoices))
	kept := make(map[string]bool, len(invoices))
	keptInvoices := make([]records.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		known[inv.UUID] = true
		if filter.MatchesDate(inv.IssueDate) {
			keptInvoices = append(keptInvoices, inv)
			kept[inv.UUID] = true
		}
	}

	keptCollections := make([]records.Collection, 0, len(collections))
	for _, c := range collections {
		if kept[c.InvoiceUUID] || !known[c.InvoiceUUID] {
			keptCollections = append(keptCollections, c)
		}
	}
	keptCfdis := make([]records.CFDIRelation, 0, len(cfdis))
	for _, rel := range cfdis {
		if kept[rel.InvoiceUUID] || !known[rel.InvoiceUUID] {
			keptCfdis = append(keptCfdis, rel)
		}
	}
	return keptOrders, keptInvoices, keptCollections, keptCfdis
}

// Aggregate computes the full KPI snapshot over the filtered record set.
func Aggregate(filter records.Filter, asOf time.Time, orders []records.Order, invoices []records.Invoice, collections []records.Collection, cfdis []records.CFDIRelation, purchases []records.Purchase) (*Snapshot, error) {
	if err := validate(orders, invoices, collections, purchases); err != nil {
		return nil, err
	}

	keptOrders, keptInvoices, keptCollections, keptCfdis := FilterRecords(filter, orders, invoices, collections, cfdis)

	allocated := allocation.Allocate(keptCollections, keptCfdis, keptInvoices, keptOrders)

	snap := &Snapshot{
		AsOf:        asOf,
		Filter:      filter,
		Aging:       aging.Age(allocated.Orders, asOf),
		Allocations: allocated.Orders,
	}
	snap.Summary.Merge(allocated.Summary)

	for _, inv := range allocated.Invoices {
		snap.TotalInvoiced += inv.TotalAmount
		snap.TotalCollected += inv.Collected
		snap.TotalAdvances += inv.Advances
	}

	weeks := map[string]*WeekProjection{}
	for _, o := range allocated.Orders {
		switch o.Status {
		case allocation.StatusSettled:
			snap.OrdersSettled++
		case allocation.StatusPartial:
			snap.OrdersPartial++
		default:
			snap.OrdersUnsettled++
		}
		if o.Outstanding <= 0 || o.DueDate == nil {
			continue
		}
		if o.DueDate.Before(asOf) {
			snap.ExpectedUncollected += o.Outstanding
		}
		year, week := o.DueDate.ISOWeek()
		label := fmt.Sprintf("%d-W%02d", year, week)
		if weeks[label] == nil {
			weeks[label] = &WeekProjection{Week: label, Year: year, ISOWeek: week}
		}
		weeks[label].Outstanding += o.Outstanding
		weeks[label].Orders++
	}
	snap.WeeklyCashFlow = make([]WeekProjection, 0, len(weeks))
	for _, w := range weeks {
		snap.WeeklyCashFlow = append(snap.WeeklyCashFlow, *w)
	}
	sort.Slice(snap.WeeklyCashFlow, func(i, j int) bool {
		a, b := snap.WeeklyCashFlow[i], snap.WeeklyCashFlow[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.ISOWeek < b.ISOWeek
	})

	// Lead-time averages always run over the full purchase history; the
	// period filter does not apply to them (they are supplier facts, not
	// period facts).
	averages, ltSummary := leadtime.SupplierAverages(purchases)
	snap.SupplierLeadTimes = averages
	snap.Summary.Merge(ltSummary)
	snap.Summary.Processed = len(keptOrders) + len(keptInvoices) + len(keptCollections)

	return snap, nil
}
