package household

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/household"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCategoryResponse(c *household.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type budgetResponse struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"categoryId"`
	Month      string    `json:"month"`
	Amount     string    `json:"amount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toBudgetResponse(b *household.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Month:      household.FormatMonth(b.Month),
		Amount:     money.Format(b.Amount),
		UpdatedAt:  b.UpdatedAt,
	}
}

type expenseResponse struct {
	ID            uuid.UUID `json:"id"`
	CategoryID    uuid.UUID `json:"categoryId"`
	Amount        string    `json:"amount"`
	ExpenseDate   api.Date  `json:"expenseDate"`
	Description   string    `json:"description"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toExpenseResponse(e *household.Expense) expenseResponse {
	return expenseResponse{
		ID:            e.ID,
		CategoryID:    e.CategoryID,
		Amount:        money.Format(e.Amount),
		ExpenseDate:   api.NewDate(e.ExpenseDate),
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

type categorySummaryResponse struct {
	Category     categoryResponse `json:"category"`
	Budget       string           `json:"budget"`
	Spent        string           `json:"spent"`
	Remaining    string           `json:"remaining"`
	UsagePercent string           `json:"usagePercent"`
	OverBudget   bool             `json:"overBudget"`
}

type summaryResponse struct {
	Month          string                    `json:"month"`
	Categories     []categorySummaryResponse `json:"categories"`
	TotalBudget    string                    `json:"totalBudget"`
	TotalSpent     string                    `json:"totalSpent"`
	TotalRemaining string                    `json:"totalRemaining"`
}

func toSummaryResponse(s *household.MonthSummary) summaryResponse {
	cats := make([]categorySummaryResponse, len(s.Categories))
	for i, c := range s.Categories {
		cats[i] = categorySummaryResponse{
			Category:     toCategoryResponse(c.Category),
			Budget:       money.Format(c.Budget),
			Spent:        money.Format(c.Spent),
			Remaining:    money.Format(c.Remaining),
			UsagePercent: c.UsagePercent.StringFixed(1),
			OverBudget:   c.OverBudget,
		}
	}

	return summaryResponse{
		Month:          household.FormatMonth(s.Month),
		Categories:     cats,
		TotalBudget:    money.Format(s.TotalBudget),
		TotalSpent:     money.Format(s.TotalSpent),
		TotalRemaining: money.Format(s.TotalRemaining),
	}
}
