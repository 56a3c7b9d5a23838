package household

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=household
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error)

	// UpsertBudget inserts or replaces the budget for (category, month).
	UpsertBudget(ctx context.Context, b *Budget) error
	ListBudgets(ctx context.Context, month time.Time) ([]*Budget, error)

	CreateExpense(ctx context.Context, e *Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) (bool, error)

	// MonthTotals returns, per live category, the budget of the month starting at
	// from and the spending in [from, until).
	MonthTotals(ctx context.Context, from, until time.Time) ([]CategoryTotals, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CategoryParams struct {
	Name      string
	Icon      string
	SortOrder int
}

func (p CategoryParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation(apperr.FieldError{Field: "name", Message: "is required"})
	}

	return nil
}

func (s *Service) CreateCategory(ctx context.Context, params CategoryParams) (*Category, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c := &Category{Name: strings.TrimSpace(params.Name), Icon: params.Icon, SortOrder: params.SortOrder}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, params CategoryParams) (*Category, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(params.Name)
	c.Icon = params.Icon
	c.SortOrder = params.SortOrder

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrCategoryNotFound
	}

	return nil
}

// SetBudget sets the monthly budget of a category; month is truncated to its first day.
func (s *Service) SetBudget(ctx context.Context, categoryID uuid.UUID, month time.Time, amount decimal.Decimal) (*Budget, error) {
	if amount.IsNegative() || !amount.Equal(amount.Round(2)) {
		return nil, apperr.Validation(apperr.FieldError{Field: "amount", Message: "must be a non-negative amount with at most two decimals"})
	}

	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	b := &Budget{CategoryID: categoryID, Month: MonthOf(month), Amount: amount}

	if err := s.repo.UpsertBudget(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Budgets(ctx context.Context, month time.Time) ([]*Budget, error) {
	return s.repo.ListBudgets(ctx, MonthOf(month))
}

// ExpenseFilter bounds are inclusive calendar days.
type ExpenseFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *uuid.UUID
}

type ExpenseParams struct {
	CategoryID    uuid.UUID
	Amount        decimal.Decimal
	ExpenseDate   time.Time
	Description   string
	PaymentMethod string
}

func (p ExpenseParams) validate() error {
	var fields []apperr.FieldError

	if p.CategoryID == uuid.Nil {
		fields = append(fields, apperr.FieldError{Field: "categoryId", Message: "is required"})
	}

	if err := money.CheckPositive(p.Amount); err != nil {
		fields = append(fields, apperr.FieldError{Field: "amount", Message: err.Error()})
	}

	if p.ExpenseDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "expenseDate", Message: "is required"})
	}

	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}

	return nil
}

func (p ExpenseParams) apply(e *Expense) {
	e.CategoryID = p.CategoryID
	e.Amount = p.Amount
	e.ExpenseDate = p.ExpenseDate
	e.Description = strings.TrimSpace(p.Description)
	e.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
}

func (s *Service) AddExpense(ctx context.Context, params ExpenseParams) (*Expense, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetCategory(ctx, params.CategoryID); err != nil {
		return nil, err
	}

	e := &Expense{}
	params.apply(e)

	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*Expense, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperr.Invalid("to must not be before from")
	}

	return s.repo.ListExpenses(ctx, filter)
}

func (s *Service) UpdateExpense(ctx context.Context, id uuid.UUID, params ExpenseParams) (*Expense, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.CategoryID != params.CategoryID {
		if _, err := s.repo.GetCategory(ctx, params.CategoryID); err != nil {
			return nil, err
		}
	}

	params.apply(e)

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeleteExpense(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrExpenseNotFound
	}

	return nil
}

// MonthSummary compares each category's spending in month against its budget.
func (s *Service) MonthSummary(ctx context.Context, month time.Time) (*MonthSummary, error) {
	from, until := MonthRange(month)

	totals, err := s.repo.MonthTotals(ctx, from, until)
	if err != nil {
		return nil, err
	}

	return Summarize(from, totals), nil
}
