package records

import (
	"fmt"
	"strings"
	"time"
)

// Order is a customer order line (pedido). Orders join invoices by folio,
// a textual invoice number, not a foreign key.
type Order struct {
	OrderID        string     `json:"order_id"`
	Customer       string     `json:"customer"`
	Folio          string     `json:"folio"`
	OrderDate      time.Time  `json:"order_date"`
	QuantityKG     float64    `json:"quantity_kg"`
	UnitPrice      float64    `json:"unit_price"`
	NetAmount      float64    `json:"net_amount"`
	CreditTermDays int        `json:"credit_term_days"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// Invoice is a bill issued to a customer (factura). UUID is the fiscal
// identifier collections reference; Folio is what orders reference.
type Invoice struct {
	InvoiceID   string    `json:"invoice_id"`
	Folio       string    `json:"folio"`
	UUID        string    `json:"uuid"`
	Customer    string    `json:"customer"`
	IssueDate   time.Time `json:"issue_date"`
	NetAmount   float64   `json:"net_amount"`
	TotalAmount float64   `json:"total_amount"`
	Balance     float64   `json:"balance"`
}

// Collection is a payment event (cobranza) settling one invoice UUID.
type Collection struct {
	CollectionID string    `json:"collection_id"`
	InvoiceUUID  string    `json:"uuid_factura_relacionada"`
	AmountPaid   float64   `json:"amount_paid"`
	PaymentDate  time.Time `json:"payment_date"`
}

// CFDIRelation is an advance-payment credit applied against an invoice UUID.
type CFDIRelation struct {
	RelationID  string  `json:"relation_id"`
	InvoiceUUID string  `json:"uuid"`
	Amount      float64 `json:"amount"`
}

// Purchase is an import purchase order (compra).
type Purchase struct {
	PurchaseID     string             `json:"purchase_id"`
	Supplier       string             `json:"supplier"`
	OrderDate      time.Time          `json:"order_date"`
	Currency       string             `json:"currency"`
	RateReal       *float64           `json:"rate_real,omitempty"`
	RateEstimated  *float64           `json:"rate_estimated,omitempty"`
	CreditTermDays int                `json:"credit_term_days"`
	ShipReal       *time.Time         `json:"ship_real,omitempty"`
	ShipEstimated  *time.Time         `json:"ship_estimated,omitempty"`
	ArrivalReal    *time.Time         `json:"arrival_real,omitempty"`
	ArrivalEst     *time.Time         `json:"arrival_estimated,omitempty"`
	DueDate        *time.Time         `json:"due_date,omitempty"`
	Materials      []PurchaseMaterial `json:"materials,omitempty"`
}

// PurchaseMaterial is one material line of a purchase, costed in the origin
// currency and in the reporting currency.
type PurchaseMaterial struct {
	MaterialID         string  `json:"material_id"`
	Material           string  `json:"material"`
	QuantityKG         float64 `json:"quantity_kg"`
	UnitCost           float64 `json:"unit_cost"`
	TotalCost          float64 `json:"total_cost"`
	UnitCostReporting  float64 `json:"unit_cost_reporting"`
	TotalCostReporting float64 `json:"total_cost_reporting"`
}

// Supplier carries the rolling lead-time averages recomputed from history.
type Supplier struct {
	Name              string  `json:"name"`
	AvgProductionDays float64 `json:"avg_production_days"`
	AvgTransportDays  float64 `json:"avg_transport_days"`
}

// Filter restricts a record set by order ids and/or a (month, year) pair.
// Both criteria combine with AND semantics; a zero Filter matches everything.
type Filter struct {
	OrderIDs []string `json:"order_ids,omitempty"`
	Month    int      `json:"month,omitempty"`
	Year     int      `json:"year,omitempty"`
}

func (f Filter) Empty() bool {
	return len(f.OrderIDs) == 0 && f.Month == 0 && f.Year == 0
}

// MatchesDate reports whether t falls in the filter's (month, year) period.
// Month without year restricts by month of any year and vice versa.
func (f Filter) MatchesDate(t time.Time) bool {
	if f.Month != 0 && int(t.Month()) != f.Month {
		return false
	}
	if f.Year != 0 && t.Year() != f.Year {
		return false
	}
	return true
}

// MatchesOrderID reports whether id is in the filter's order-id set.
func (f Filter) MatchesOrderID(id string) bool {
	if len(f.OrderIDs) == 0 {
		return true
	}
	for _, want := range f.OrderIDs {
		if want == id {
			return true
		}
	}
	return false
}

// FlagKind classifies per-record problems accumulated into a BatchSummary.
type FlagKind string

const (
	FlagRateUnresolved  FlagKind = "rate_unresolved"
	FlagDateUnresolved  FlagKind = "date_unresolved"
	FlagMissingInvoice  FlagKind = "missing_invoice"
	FlagOrphanPayment   FlagKind = "orphan_payment"
	FlagNegativeLead    FlagKind = "negative_lead_time"
	FlagExcessSettled   FlagKind = "excess_settled"
	FlagApproxAllocated FlagKind = "approximate_allocation"
)

// Flag records one non-fatal per-record problem.
type Flag struct {
	RecordID string   `json:"record_id"`
	Kind     FlagKind `json:"kind"`
	Reason   string   `json:"reason"`
}

// BatchSummary accumulates per-record outcomes for a whole pass. Problems
// never abort a batch; they are counted here and surfaced to the API layer.
type BatchSummary struct {
	Processed int    `json:"processed"`
	Flags     []Flag `json:"flags,omitempty"`
}

func (s *BatchSummary) Add(recordID string, kind FlagKind, format string, args ...interface{}) {
	s.Flags = append(s.Flags, Flag{
		RecordID: recordID,
		Kind:     kind,
		Reason:   fmt.Sprintf(format, args...),
	})
}

// Counts returns flag totals by kind.
func (s *BatchSummary) Counts() map[FlagKind]int {
	out := map[FlagKind]int{}
	for _, f := range s.Flags {
		out[f.Kind]++
	}
	return out
}

// Merge folds another summary into this one.
func (s *BatchSummary) Merge(other BatchSummary) {
	s.Processed += other.Processed
	s.Flags = append(s.Flags, other.Flags...)
}

// String renders the "N processed, M flagged" line the API layer surfaces.
func (s *BatchSummary) String() string {
	if len(s.Flags) == 0 {
		return fmt.Sprintf("%d records processed", s.Processed)
	}
	parts := make([]string, 0, 4)
	for kind, n := range s.Counts() {
		parts = append(parts, fmt.Sprintf("%d %s", n, kind))
	}
	return fmt.Sprintf("%d records processed, %d flagged (%s)", s.Processed, len(s.Flags), strings.Join(parts, ", "))
}
