package allocation

import (
	"time"

	"github.com/shopspring/decimal"

	"FlujoCorpSaas/api/recon/records"
	"FlujoCorpSaas/internal/config"
)

// Status classifies how settled an order is after allocation.
type Status string

const (
	StatusSettled   Status = "settled"
	StatusPartial   Status = "partially_settled"
	StatusUnsettled Status = "unsettled"
)

// OrderAllocation is one order's share of its invoice's settlement.
// Approximate marks orders under multi-order invoices, where pro-rata
// settlement is a documented approximation rather than a verified rule.
type OrderAllocation struct {
	OrderID     string     `json:"order_id"`
	Folio       string     `json:"folio"`
	InvoiceUUID string     `json:"invoice_uuid,omitempty"`
	NetAmount   float64    `json:"net_amount"`
	Allocated   float64    `json:"allocated_amount"`
	Outstanding float64    `json:"outstanding_amount"`
	Ratio       float64    `json:"settlement_ratio"`
	Status      Status     `json:"status"`
	Approximate bool       `json:"approximate,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// InvoiceSettlement is the per-invoice roll-up of collections and advances.
type InvoiceSettlement struct {
	Folio       string  `json:"folio"`
	UUID        string  `json:"uuid"`
	TotalAmount float64 `json:"total_amount"`
	Collected   float64 `json:"collected"`
	Advances    float64 `json:"advances"`
	Ratio       float64 `json:"settlement_ratio"`
	Collections int     `json:"collections"`
	Orders      int     `json:"orders"`
}

// Result is what one allocation pass produces. Reference failures never
// abort the pass; they land in the summary.
type Result struct {
	Orders   []OrderAllocation    `json:"orders"`
	Invoices []InvoiceSettlement  `json:"invoices"`
	Summary  records.BatchSummary `json:"summary"`
}

// Classify applies the settled-threshold band: a ratio of 0.99 or more
// absorbs rounding and tax noise and counts as fully settled.
func Classify(ratio float64, referenced bool) Status {
	if !referenced {
		return StatusUnsettled
	}
	if ratio >= config.SettledThreshold {
		return StatusSettled
	}
	if ratio > 0 {
		return StatusPartial
	}
	return StatusUnsettled
}

// Allocate links the three independently-keyed ledgers: collections and
// CFDI advances index by invoice UUID, orders join invoices by folio, and
// each invoice's settlement ratio is spread pro-rata over its orders.
func Allocate(collections []records.Collection, cfdis []records.CFDIRelation, invoices []records.Invoice, orders []records.Order) Result {
	res := Result{
		Orders:   make([]OrderAllocation, 0, len(orders)),
		Invoices: make([]InvoiceSettlement, 0, len(invoices)),
	}
	res.Summary.Processed = len(orders) + len(invoices) + len(collections)

	byUUID := make(map[string]*records.Invoice, len(invoices))
	byFolio := make(map[string]*records.Invoice, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		if inv.UUID != "" {
			byUUID[inv.UUID] = inv
		}
		if inv.Folio != "" {
			byFolio[inv.Folio] = inv
		}
	}

	collected := map[string]decimal.Decimal{}
	collCount := map[string]int{}
	for _, c := range collections {
		if _, ok := byUUID[c.InvoiceUUID]; !ok {
			res.Summary.Add(c.CollectionID, records.FlagOrphanPayment,
				"collection references unknown invoice uuid %q", c.InvoiceUUID)
			continue
		}
		collected[c.InvoiceUUID] = collected[c.InvoiceUUID].Add(decimal.NewFromFloat(c.AmountPaid))
		collCount[c.InvoiceUUID]++
	}

	advanced := map[string]decimal.Decimal{}
	for _, rel := range cfdis {
		if _, ok := byUUID[rel.InvoiceUUID]; !ok {
			res.Summary.Add(rel.RelationID, records.FlagOrphanPayment,
				"cfdi relation references unknown invoice uuid %q", rel.InvoiceUUID)
			continue
		}
		advanced[rel.InvoiceUUID] = advanced[rel.InvoiceUUID].Add(decimal.NewFromFloat(rel.Amount))
	}

	ordersPerFolio := map[string]int{}
	for _, o := range orders {
		ordersPerFolio[o.Folio]++
	}

	ratios := make(map[string]float64, len(invoices))
	referenced := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		coll, _ := collected[inv.UUID].Float64()
		adv, _ := advanced[inv.UUID].Float64()
		settledDec := collected[inv.UUID].Add(advanced[inv.UUID])
		settled, _ := settledDec.Float64()

		ratio := 0.0
		if inv.TotalAmount > 0 {
			ratio = settled / inv.TotalAmount
			if ratio > 1.0 {
				// Production data holds entry errors; clamp the excess
				// instead of letting it inflate order allocations.
				if settled-inv.TotalAmount > config.AmountEpsilon {
					res.Summary.Add(inv.InvoiceID, records.FlagExcessSettled,
						"settled %.2f exceeds invoice total %.2f", settled, inv.TotalAmount)
				}
				ratio = 1.0
			}
		}
		ratios[inv.UUID] = ratio
		referenced[inv.UUID] = collCount[inv.UUID] > 0 || advanced[inv.UUID].Sign() != 0

		res.Invoices = append(res.Invoices, InvoiceSettlement{
			Folio:       inv.Folio,
			UUID:        inv.UUID,
			TotalAmount: inv.TotalAmount,
			Collected:   coll,
			Advances:    adv,
			Ratio:       ratio,
			Collections: collCount[inv.UUID],
			Orders:      ordersPerFolio[inv.Folio],
		})
	}

	for _, o := range orders {
		inv, ok := byFolio[o.Folio]
		if !ok {
			// Folio mismatch or typo: reported for manual review, not dropped.
			res.Summary.Add(o.OrderID, records.FlagMissingInvoice,
				"order folio %q matches no invoice", o.Folio)
			res.Orders = append(res.Orders, OrderAllocation{
				OrderID:     o.OrderID,
				Folio:       o.Folio,
				NetAmount:   o.NetAmount,
				Outstanding: o.NetAmount,
				Status:      StatusUnsettled,
				DueDate:     o.DueDate,
			})
			continue
		}

		ratio := ratios[inv.UUID]
		alloc := OrderAllocation{
			OrderID:     o.OrderID,
			Folio:       o.Folio,
			InvoiceUUID: inv.UUID,
			NetAmount:   o.NetAmount,
			Allocated:   o.NetAmount * ratio,
			Outstanding: o.NetAmount * (1 - ratio),
			Ratio:       ratio,
			Status:      Classify(ratio, referenced[inv.UUID]),
			Approximate: ordersPerFolio[o.Folio] > 1,
			DueDate:     dueDate(o, inv),
		}
		if alloc.Approximate {
			res.Summary.Add(o.OrderID, records.FlagApproxAllocated,
				"invoice %s bills %d orders; settlement spread pro-rata", inv.Folio, ordersPerFolio[o.Folio])
		}
		res.Orders = append(res.Orders, alloc)
	}

	return res
}

// dueDate resolves an order's due date: an ingested due date wins, else
// invoice issue date plus the order's credit term.
func dueDate(o records.Order, inv *records.Invoice) *time.Time {
	if o.DueDate != nil {
		return o.DueDate
	}
	if o.CreditTermDays <= 0 || inv.IssueDate.IsZero() {
		return nil
	}
	due := inv.IssueDate.AddDate(0, 0, o.CreditTermDays)
	return &due
}
