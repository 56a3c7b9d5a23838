// Package household tracks day-to-day family spending against monthly category budgets.
package household

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

var (
	ErrCategoryNotFound = apperr.NotFound("household category not found")
	ErrExpenseNotFound  = apperr.NotFound("household expense not found")
	ErrInvalidMonth     = apperr.Invalid("month must be formatted as YYYY-MM")
)

type Category struct {
	ID        uuid.UUID
	Name      string
	Icon      string
	SortOrder int
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Budget is the amount allowed for a category in one month.
type Budget struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Month      time.Time
	Amount     decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Expense struct {
	ID            uuid.UUID
	CategoryID    uuid.UUID
	Amount        decimal.Decimal
	ExpenseDate   time.Time
	Description   string
	PaymentMethod string
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseMonth reads "2024-05" and returns the first day of that month in UTC.
func ParseMonth(s string) (time.Time, error) {
	m, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}

	return m, nil
}

// MonthOf truncates t to the first day of its month.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first day of month and the first day of the next month.
func MonthRange(month time.Time) (from, until time.Time) {
	from = MonthOf(month)
	return from, from.AddDate(0, 1, 0)
}

func FormatMonth(month time.Time) string {
	return fmt.Sprintf("%04d-%02d", month.Year(), month.Month())
}

// CategoryTotals is the raw budget and spending of one category in a month.
type CategoryTotals struct {
	Category *Category
	Budget   decimal.Decimal
	Spent    decimal.Decimal
}

type CategorySummary struct {
	Category  *Category
	Budget    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	// UsagePercent is zero when the category has no budget.
	UsagePercent decimal.Decimal
	OverBudget   bool
}

type MonthSummary struct {
	Month          time.Time
	Categories     []CategorySummary
	TotalBudget    decimal.Decimal
	TotalSpent     decimal.Decimal
	TotalRemaining decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Summarize derives remaining amounts, usage and grand totals for a month.
func Summarize(month time.Time, totals []CategoryTotals) *MonthSummary {
	sum := &MonthSummary{
		Month:       MonthOf(month),
		Categories:  make([]CategorySummary, 0, len(totals)),
		TotalBudget: decimal.Zero,
		TotalSpent:  decimal.Zero,
	}

	for _, t := range totals {
		cs := CategorySummary{
			Category:     t.Category,
			Budget:       t.Budget,
			Spent:        t.Spent,
			Remaining:    t.Budget.Sub(t.Spent),
			UsagePercent: decimal.Zero,
			OverBudget:   t.Spent.GreaterThan(t.Budget),
		}

		if t.Budget.IsPositive() {
			cs.UsagePercent = t.Spent.Mul(hundred).DivRound(t.Budget, 1)
		}

		sum.Categories = append(sum.Categories, cs)
		sum.TotalBudget = sum.TotalBudget.Add(t.Budget)
		sum.TotalSpent = sum.TotalSpent.Add(t.Spent)
	}

	sum.TotalRemaining = sum.TotalBudget.Sub(sum.TotalSpent)

	return sum
}
