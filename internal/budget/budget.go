// Package budget plans future spending and turns planned lines into payment items.
package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

var (
	ErrPlanNotFound     = apperr.NotFound("budget plan not found")
	ErrItemNotFound     = apperr.NotFound("budget item not found")
	ErrAlreadyConverted = apperr.Conflict("budget item has already been converted to a payment item")
)

type Plan struct {
	ID          uuid.UUID
	Name        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Notes       string
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one planned expense. Once converted it links to the payment item
// created from it and is frozen.
type Item struct {
	ID                 uuid.UUID
	PlanID             uuid.UUID
	ItemName           string
	PlannedAmount      decimal.Decimal
	CategoryID         *uuid.UUID
	DueDate            *time.Time
	ConvertedToPayment bool
	PaymentItemID      *uuid.UUID
	Notes              string
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PlanDetail struct {
	Plan           *Plan
	Items          []*Item
	PlannedTotal   decimal.Decimal
	ConvertedTotal decimal.Decimal
}

// Totals sums planned amounts overall and for converted items.
func Totals(items []*Item) (planned, converted decimal.Decimal) {
	planned, converted = decimal.Zero, decimal.Zero

	for _, it := range items {
		planned = planned.Add(it.PlannedAmount)

		if it.ConvertedToPayment {
			converted = converted.Add(it.PlannedAmount)
		}
	}

	return planned, converted
}
