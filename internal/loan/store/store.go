package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/loan"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const recordColumns = `
	id, record_type, name, counterparty, principal_amount, annual_interest_rate,
	monthly_payment_amount, total_paid_amount, status, start_date, notes,
	is_deleted, deleted_at, created_at, updated_at
`

func scanRecord(s database.Scanner) (*loan.Record, error) {
	var (
		r                  loan.Record
		recordType, status string
		monthly            decimal.NullDecimal
	)

	if err := s.Scan(
		&r.ID, &recordType, &r.Name, &r.Counterparty, &r.PrincipalAmount, &r.AnnualInterestRate,
		&monthly, &r.TotalPaidAmount, &status, &r.StartDate, &r.Notes,
		&r.IsDeleted, &r.DeletedAt, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.RecordType = loan.RecordType(recordType)
	r.Status = loan.Status(status)

	if monthly.Valid {
		r.MonthlyPaymentAmount = &monthly.Decimal
	}

	return &r, nil
}

func (s *Store) Create(ctx context.Context, r *loan.Record) error {
	query := `
		INSERT INTO loan_investment_records (
			record_type, name, counterparty, principal_amount, annual_interest_rate,
			monthly_payment_amount, total_paid_amount, status, start_date, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		r.RecordType,
		r.Name,
		r.Counterparty,
		r.PrincipalAmount,
		r.AnnualInterestRate,
		nullDecimal(r.MonthlyPaymentAmount),
		r.TotalPaidAmount,
		r.Status,
		r.StartDate,
		r.Notes,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating loan record: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*loan.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM loan_investment_records WHERE id = $1 AND ` + database.NotDeleted("")

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loan.ErrNotFound
		}

		return nil, fmt.Errorf("getting loan record: %w", err)
	}

	return r, nil
}

func (s *Store) List(ctx context.Context, filter loan.ListFilter) ([]*loan.Record, error) {
	b := database.NewBuilder(`SELECT ` + recordColumns + ` FROM loan_investment_records WHERE true`).
		AndNotDeleted("", filter.IncludeDeleted)

	if filter.RecordType != nil {
		b.And("record_type = $%d", *filter.RecordType)
	}

	if filter.Status != nil {
		b.And("status = $%d", *filter.Status)
	}

	b.Raw(" ORDER BY start_date DESC, created_at DESC")

	rows, err := s.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("listing loan records: %w", err)
	}
	defer rows.Close()

	var records []*loan.Record

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan record: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating loan records: %w", err)
	}

	return records, nil
}

func (s *Store) Update(ctx context.Context, r *loan.Record) error {
	query := `
		UPDATE loan_investment_records
		SET record_type = $1, name = $2, counterparty = $3, principal_amount = $4,
			annual_interest_rate = $5, monthly_payment_amount = $6, status = $7,
			start_date = $8, notes = $9, updated_at = NOW()
		WHERE id = $10 AND is_deleted = false
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		r.RecordType,
		r.Name,
		r.Counterparty,
		r.PrincipalAmount,
		r.AnnualInterestRate,
		nullDecimal(r.MonthlyPaymentAmount),
		r.Status,
		r.StartDate,
		r.Notes,
		r.ID,
	).Scan(&r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return loan.ErrNotFound
		}

		return fmt.Errorf("updating loan record: %w", err)
	}

	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "loan_investment_records", id)
	if err != nil {
		return false, fmt.Errorf("deleting loan record: %w", err)
	}

	return ok, nil
}

func (s *Store) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.Restore(ctx, s.db, "loan_investment_records", id)
	if err != nil {
		return false, fmt.Errorf("restoring loan record: %w", err)
	}

	return ok, nil
}

func (s *Store) AddPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*loan.Record, error) {
	query := `
		UPDATE loan_investment_records
		SET total_paid_amount = total_paid_amount + $2,
			status = CASE
				WHEN record_type = 'loan' AND total_paid_amount + $2 >= principal_amount THEN 'completed'
				ELSE status
			END,
			updated_at = NOW()
		WHERE id = $1 AND is_deleted = false AND status = 'active'
		RETURNING ` + recordColumns

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id, amount))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loan.ErrCompleted
		}

		return nil, fmt.Errorf("recording loan payment: %w", err)
	}

	return r, nil
}

func (s *Store) Summary(ctx context.Context) ([]loan.TypeSummary, error) {
	query := `
		SELECT
			record_type,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(SUM(principal_amount), 0),
			COALESCE(SUM(total_paid_amount), 0),
			COALESCE(SUM(GREATEST(principal_amount - total_paid_amount, 0)), 0)
		FROM loan_investment_records
		WHERE is_deleted = false
		GROUP BY record_type
		ORDER BY record_type
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("summarising loan records: %w", err)
	}
	defer rows.Close()

	var out []loan.TypeSummary

	for rows.Next() {
		var (
			ts         loan.TypeSummary
			recordType string
		)

		if err := rows.Scan(&recordType, &ts.Count, &ts.ActiveCount, &ts.Principal, &ts.Paid, &ts.Outstanding); err != nil {
			return nil, fmt.Errorf("scanning loan summary: %w", err)
		}

		ts.RecordType = loan.RecordType(recordType)
		out = append(out, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating loan summary: %w", err)
	}

	return out, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(*d)
}
