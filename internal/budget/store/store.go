package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/budget"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
	paymentstore "github.com/MrJamesThe3rd/caiwu/internal/payment/store"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const planColumns = `id, name, period_start, period_end, notes, is_deleted, deleted_at, created_at, updated_at`

func scanPlan(s database.Scanner) (*budget.Plan, error) {
	var p budget.Plan

	if err := s.Scan(
		&p.ID, &p.Name, &p.PeriodStart, &p.PeriodEnd, &p.Notes,
		&p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Store) CreatePlan(ctx context.Context, p *budget.Plan) error {
	query := `
		INSERT INTO budget_plans (name, period_start, period_end, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, p.Name, p.PeriodStart, p.PeriodEnd, p.Notes).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating budget plan: %w", err)
	}

	return nil
}

func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*budget.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM budget_plans WHERE id = $1 AND ` + database.NotDeleted("")

	p, err := scanPlan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrPlanNotFound
		}

		return nil, fmt.Errorf("getting budget plan: %w", err)
	}

	return p, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]*budget.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM budget_plans WHERE ` + database.NotDeleted("") +
		` ORDER BY period_start DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing budget plans: %w", err)
	}
	defer rows.Close()

	var plans []*budget.Plan

	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget plan: %w", err)
		}

		plans = append(plans, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget plans: %w", err)
	}

	return plans, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *budget.Plan) error {
	query := `
		UPDATE budget_plans
		SET name = $1, period_start = $2, period_end = $3, notes = $4, updated_at = NOW()
		WHERE id = $5 AND is_deleted = false
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, p.Name, p.PeriodStart, p.PeriodEnd, p.Notes, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget.ErrPlanNotFound
		}

		return fmt.Errorf("updating budget plan: %w", err)
	}

	return nil
}

func (s *Store) DeletePlan(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "budget_plans", id)
	if err != nil {
		return false, fmt.Errorf("deleting budget plan: %w", err)
	}

	return ok, nil
}

const itemColumns = `
	id, plan_id, item_name, planned_amount, category_id, due_date, converted_to_payment,
	payment_item_id, notes, is_deleted, deleted_at, created_at, updated_at
`

func scanItem(s database.Scanner) (*budget.Item, error) {
	var it budget.Item

	if err := s.Scan(
		&it.ID, &it.PlanID, &it.ItemName, &it.PlannedAmount, &it.CategoryID, &it.DueDate,
		&it.ConvertedToPayment, &it.PaymentItemID, &it.Notes,
		&it.IsDeleted, &it.DeletedAt, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &it, nil
}

func (s *Store) CreateItem(ctx context.Context, it *budget.Item) error {
	query := `
		INSERT INTO budget_items (plan_id, item_name, planned_amount, category_id, due_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		it.PlanID,
		it.ItemName,
		it.PlannedAmount,
		it.CategoryID,
		it.DueDate,
		it.Notes,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating budget item: %w", err)
	}

	return nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*budget.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM budget_items WHERE id = $1 AND ` + database.NotDeleted("")

	it, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrItemNotFound
		}

		return nil, fmt.Errorf("getting budget item: %w", err)
	}

	return it, nil
}

func (s *Store) ListItems(ctx context.Context, planID uuid.UUID) ([]*budget.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM budget_items
		WHERE plan_id = $1 AND ` + database.NotDeleted("") + `
		ORDER BY due_date ASC NULLS LAST, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("listing budget items: %w", err)
	}
	defer rows.Close()

	var items []*budget.Item

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget item: %w", err)
		}

		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget items: %w", err)
	}

	return items, nil
}

// UpdateItem leaves converted items untouched and reports them as already converted.
func (s *Store) UpdateItem(ctx context.Context, it *budget.Item) error {
	query := `
		UPDATE budget_items
		SET item_name = $1, planned_amount = $2, category_id = $3, due_date = $4, notes = $5, updated_at = NOW()
		WHERE id = $6 AND is_deleted = false AND converted_to_payment = false
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		it.ItemName,
		it.PlannedAmount,
		it.CategoryID,
		it.DueDate,
		it.Notes,
		it.ID,
	).Scan(&it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget.ErrAlreadyConverted
		}

		return fmt.Errorf("updating budget item: %w", err)
	}

	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "budget_items", id)
	if err != nil {
		return false, fmt.Errorf("deleting budget item: %w", err)
	}

	return ok, nil
}

type conversionTx struct {
	tx     *sql.Tx
	itemID uuid.UUID
}

func (s *Store) BeginConversion(ctx context.Context, itemID uuid.UUID) (budget.ConversionTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning conversion tx: %w", err)
	}

	return &conversionTx{tx: dbTx, itemID: itemID}, nil
}

func (c *conversionTx) Commit() error   { return c.tx.Commit() }
func (c *conversionTx) Rollback() error { return c.tx.Rollback() }

func (c *conversionTx) LockItem(ctx context.Context) (*budget.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM budget_items
		WHERE id = $1 AND ` + database.NotDeleted("") + `
		FOR UPDATE`

	it, err := scanItem(c.tx.QueryRowContext(ctx, query, c.itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrItemNotFound
		}

		return nil, fmt.Errorf("locking budget item: %w", err)
	}

	return it, nil
}

func (c *conversionTx) CreatePaymentItem(ctx context.Context, item *payment.Item) error {
	return paymentstore.InsertItem(ctx, c.tx, item)
}

func (c *conversionTx) CreateAuditLog(ctx context.Context, log *payment.AuditLog) error {
	return paymentstore.InsertAuditLog(ctx, c.tx, log)
}

func (c *conversionTx) MarkConverted(ctx context.Context, paymentItemID uuid.UUID) error {
	query := `
		UPDATE budget_items
		SET converted_to_payment = true, payment_item_id = $1, updated_at = NOW()
		WHERE id = $2 AND converted_to_payment = false
	`

	ok, err := database.ExecAffected(ctx, c.tx, query, paymentItemID, c.itemID)
	if err != nil {
		return fmt.Errorf("marking budget item converted: %w", err)
	}

	if !ok {
		return budget.ErrAlreadyConverted
	}

	return nil
}
