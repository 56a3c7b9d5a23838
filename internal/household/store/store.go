package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/household"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const categoryColumns = `c.id, c.name, c.icon, c.sort_order, c.is_deleted, c.deleted_at, c.created_at, c.updated_at`

func scanCategory(s database.Scanner, extra ...any) (*household.Category, error) {
	var c household.Category

	dest := []any{&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.IsDeleted, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *household.Category) error {
	query := `
		INSERT INTO household_categories (name, icon, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.Name, c.Icon, c.SortOrder).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("creating household category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*household.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM household_categories c WHERE c.id = $1 AND ` + database.NotDeleted("c")

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, household.ErrCategoryNotFound
		}

		return nil, fmt.Errorf("getting household category: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*household.Category, error) {
	query := `SELECT ` + categoryColumns + `
		FROM household_categories c
		WHERE ` + database.NotDeleted("c") + `
		ORDER BY c.sort_order ASC, c.name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing household categories: %w", err)
	}
	defer rows.Close()

	var categories []*household.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning household category: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating household categories: %w", err)
	}

	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *household.Category) error {
	query := `
		UPDATE household_categories
		SET name = $1, icon = $2, sort_order = $3, updated_at = NOW()
		WHERE id = $4 AND is_deleted = false
		RETURNING updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.Name, c.Icon, c.SortOrder, c.ID).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return household.ErrCategoryNotFound
		}

		return fmt.Errorf("updating household category: %w", err)
	}

	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "household_categories", id)
	if err != nil {
		return false, fmt.Errorf("deleting household category: %w", err)
	}

	return ok, nil
}

func (s *Store) UpsertBudget(ctx context.Context, b *household.Budget) error {
	query := `
		INSERT INTO household_budgets (category_id, month, amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (category_id, month) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, b.CategoryID, b.Month, b.Amount).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting household budget: %w", err)
	}

	return nil
}

func (s *Store) ListBudgets(ctx context.Context, month time.Time) ([]*household.Budget, error) {
	query := `
		SELECT b.id, b.category_id, b.month, b.amount, b.created_at, b.updated_at
		FROM household_budgets b
		JOIN household_categories c ON c.id = b.category_id
		WHERE b.month = $1 AND ` + database.NotDeleted("c") + `
		ORDER BY c.sort_order ASC, c.name ASC`

	rows, err := s.db.QueryContext(ctx, query, month)
	if err != nil {
		return nil, fmt.Errorf("listing household budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*household.Budget

	for rows.Next() {
		var b household.Budget

		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Month, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning household budget: %w", err)
		}

		budgets = append(budgets, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating household budgets: %w", err)
	}

	return budgets, nil
}

const expenseColumns = `
	id, category_id, amount, expense_date, description, payment_method,
	is_deleted, deleted_at, created_at, updated_at
`

func scanExpense(s database.Scanner) (*household.Expense, error) {
	var e household.Expense

	if err := s.Scan(
		&e.ID, &e.CategoryID, &e.Amount, &e.ExpenseDate, &e.Description, &e.PaymentMethod,
		&e.IsDeleted, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, e *household.Expense) error {
	query := `
		INSERT INTO household_expenses (category_id, amount, expense_date, description, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, e.CategoryID, e.Amount, e.ExpenseDate, e.Description, e.PaymentMethod).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating household expense: %w", err)
	}

	return nil
}

func (s *Store) GetExpense(ctx context.Context, id uuid.UUID) (*household.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM household_expenses WHERE id = $1 AND ` + database.NotDeleted("")

	e, err := scanExpense(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, household.ErrExpenseNotFound
		}

		return nil, fmt.Errorf("getting household expense: %w", err)
	}

	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, filter household.ExpenseFilter) ([]*household.Expense, error) {
	b := database.NewBuilder(`SELECT ` + expenseColumns + ` FROM household_expenses WHERE true`).
		AndNotDeleted("", false)

	if filter.From != nil {
		b.And("expense_date >= $%d", *filter.From)
	}

	if filter.To != nil {
		b.And("expense_date <= $%d", *filter.To)
	}

	if filter.CategoryID != nil {
		b.And("category_id = $%d", *filter.CategoryID)
	}

	b.Raw(" ORDER BY expense_date DESC, created_at DESC")

	rows, err := s.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("listing household expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*household.Expense

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning household expense: %w", err)
		}

		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating household expenses: %w", err)
	}

	return expenses, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e *household.Expense) error {
	query := `
		UPDATE household_expenses
		SET category_id = $1, amount = $2, expense_date = $3, description = $4, payment_method = $5, updated_at = NOW()
		WHERE id = $6 AND is_deleted = false
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, e.CategoryID, e.Amount, e.ExpenseDate, e.Description, e.PaymentMethod, e.ID).
		Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return household.ErrExpenseNotFound
		}

		return fmt.Errorf("updating household expense: %w", err)
	}

	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "household_expenses", id)
	if err != nil {
		return false, fmt.Errorf("deleting household expense: %w", err)
	}

	return ok, nil
}

func (s *Store) MonthTotals(ctx context.Context, from, until time.Time) ([]household.CategoryTotals, error) {
	query := `
		SELECT ` + categoryColumns + `,
			COALESCE(b.amount, 0),
			COALESCE(spent.amount, 0)
		FROM household_categories c
		LEFT JOIN household_budgets b ON b.category_id = c.id AND b.month = $1
		LEFT JOIN (
			SELECT category_id, SUM(amount) AS amount
			FROM household_expenses
			WHERE is_deleted = false AND expense_date >= $1 AND expense_date < $2
			GROUP BY category_id
		) spent ON spent.category_id = c.id
		WHERE ` + database.NotDeleted("c") + `
		ORDER BY c.sort_order ASC, c.name ASC`

	rows, err := s.db.QueryContext(ctx, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("aggregating household month: %w", err)
	}
	defer rows.Close()

	var totals []household.CategoryTotals

	for rows.Next() {
		var t household.CategoryTotals

		c, err := scanCategory(rows, &t.Budget, &t.Spent)
		if err != nil {
			return nil, fmt.Errorf("scanning household totals: %w", err)
		}

		t.Category = c
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating household totals: %w", err)
	}

	return totals, nil
}
