package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// SumRecords adds up the amounts of all records that are not soft-deleted.
func SumRecords(records []*Record) decimal.Decimal {
	sum := decimal.Zero

	for _, r := range records {
		if r.IsDeleted {
			continue
		}

		sum = sum.Add(r.AmountPaid)
	}

	return sum
}

// ClassifyStatus derives an item's status. An unpaid item becomes overdue once
// its due day is strictly before today.
//
// The store's statusCase expression implements the same rule in SQL.
func ClassifyStatus(paid, total decimal.Decimal, due, now time.Time) Status {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	case civilDate(due).Before(civilDate(now)):
		return StatusOverdue
	}

	return StatusPending
}

// civilDate drops the clock and zone, keeping the calendar day as seen in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
