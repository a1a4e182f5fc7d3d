package aging

import (
	"time"

	"FlujoCorpSaas/api/recon/allocation"
)

// Bucket labels, keyed by days overdue relative to the as-of date.
const (
	BucketNotYetDue = "not_yet_due"
	Bucket0to30     = "0-30"
	Bucket31to60    = "31-60"
	Bucket61to90    = "61-90"
	Bucket90Plus    = "90+"
)

// Buckets in display order.
var Buckets = []string{BucketNotYetDue, Bucket0to30, Bucket31to60, Bucket61to90, Bucket90Plus}

// Report distributes outstanding balances across overdue buckets. Orders
// without a resolvable due date are not dropped into a bucket; they are
// reported apart so exposure is never silently undercounted.
type Report struct {
	AsOf          time.Time          `json:"as_of"`
	Buckets       map[string]float64 `json:"buckets"`
	Undated       float64            `json:"undated_outstanding"`
	UndatedOrders int                `json:"undated_orders"`
	Total         float64            `json:"total_outstanding"`
}

// BucketFor maps days overdue to a bucket label. Negative deltas are not
// yet due and stay out of 0-30.
func BucketFor(daysOverdue int) string {
	switch {
	case daysOverdue < 0:
		return BucketNotYetDue
	case daysOverdue <= 30:
		return Bucket0to30
	case daysOverdue <= 60:
		return Bucket31to60
	case daysOverdue <= 90:
		return Bucket61to90
	default:
		return Bucket90Plus
	}
}

// Age buckets every order with an outstanding balance by how far past its
// due date it is at asOf.
func Age(orders []allocation.OrderAllocation, asOf time.Time) Report {
	rep := Report{AsOf: asOf, Buckets: map[string]float64{}}
	for _, b := range Buckets {
		rep.Buckets[b] = 0
	}
	for _, o := range orders {
		if o.Outstanding <= 0 {
			continue
		}
		rep.Total += o.Outstanding
		if o.DueDate == nil {
			rep.Undated += o.Outstanding
			rep.UndatedOrders++
			continue
		}
		days := int(asOf.Sub(*o.DueDate).Hours() / 24)
		rep.Buckets[BucketFor(days)] += o.Outstanding
	}
	return rep
}
