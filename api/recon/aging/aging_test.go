package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"FlujoCorpSaas/api/recon/allocation"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dp(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestBucketBoundaries(t *testing.T) {
	assert.Equal(t, BucketNotYetDue, BucketFor(-1))
	assert.Equal(t, Bucket0to30, BucketFor(0))
	assert.Equal(t, Bucket0to30, BucketFor(30))
	assert.Equal(t, Bucket31to60, BucketFor(31))
	assert.Equal(t, Bucket31to60, BucketFor(60))
	assert.Equal(t, Bucket61to90, BucketFor(61))
	assert.Equal(t, Bucket61to90, BucketFor(90))
	assert.Equal(t, Bucket90Plus, BucketFor(91))
}

func TestAge(t *testing.T) {
	asOf := date(2024, 6, 1)
	orders := []allocation.OrderAllocation{
		// 31 days overdue: lands in 31-60, not 0-30.
		{OrderID: "O-1", Outstanding: 100, DueDate: dp(2024, 5, 1)},
		// due in the future: not yet due
		{OrderID: "O-2", Outstanding: 50, DueDate: dp(2024, 6, 15)},
		// no due date: reported apart, never silently dropped
		{OrderID: "O-3", Outstanding: 75},
		// fully allocated: not outstanding, excluded
		{OrderID: "O-4", Outstanding: 0, DueDate: dp(2024, 1, 1)},
		// 120 days overdue
		{OrderID: "O-5", Outstanding: 200, DueDate: dp(2024, 2, 2)},
	}

	rep := Age(orders, asOf)
	assert.InDelta(t, 100, rep.Buckets[Bucket31to60], 0.01)
	assert.InDelta(t, 50, rep.Buckets[BucketNotYetDue], 0.01)
	assert.InDelta(t, 200, rep.Buckets[Bucket90Plus], 0.01)
	assert.InDelta(t, 0, rep.Buckets[Bucket0to30], 0.01)
	assert.InDelta(t, 75, rep.Undated, 0.01)
	assert.Equal(t, 1, rep.UndatedOrders)
	assert.InDelta(t, 425, rep.Total, 0.01)
}
