package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `
	p.id, p.item_name, p.total_amount, p.paid_amount, p.status, p.payment_type,
	p.start_date, p.end_date, p.project_id, p.category_id, p.source, p.notes,
	p.is_deleted, p.deleted_at, p.created_at, p.updated_at
`

// scanItem expects the column order of itemColumns.
func scanItem(s database.Scanner) (*payment.Item, error) {
	var it payment.Item

	var status, paymentType, source string

	if err := s.Scan(
		&it.ID, &it.ItemName, &it.TotalAmount, &it.PaidAmount, &status, &paymentType,
		&it.StartDate, &it.EndDate, &it.ProjectID, &it.CategoryID, &source, &it.Notes,
		&it.IsDeleted, &it.DeletedAt, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}

	it.Status = payment.Status(status)
	it.PaymentType = payment.PaymentType(paymentType)
	it.Source = payment.Source(source)

	return &it, nil
}

func scanItems(rows *sql.Rows) ([]*payment.Item, error) {
	defer rows.Close()

	var items []*payment.Item

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment item: %w", err)
		}

		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment items: %w", err)
	}

	return items, nil
}

// statusCase derives an item's status in SQL the same way payment.ClassifyStatus
// does in Go, from the paid CTE and today's date in $2.
const statusCase = `CASE
		WHEN paid.amount >= p.total_amount THEN 'paid'
		WHEN paid.amount > 0 THEN 'partial'
		WHEN COALESCE(p.end_date, p.start_date) < $2::date THEN 'overdue'
		ELSE 'pending'
	END`

// reconcileQuery recomputes paid_amount and status of one live item in a single
// statement. $1 is the item id, $2 today's date.
const reconcileQuery = `
		WITH paid AS (
			SELECT COALESCE(SUM(amount_paid), 0) AS amount
			FROM payment_records
			WHERE item_id = $1 AND is_deleted = false
		)
		UPDATE payment_items p
		SET paid_amount = paid.amount,
			status = ` + statusCase + `,
			updated_at = NOW()
		FROM paid
		WHERE p.id = $1 AND p.is_deleted = false
		RETURNING ` + itemColumns

func dateArg(t time.Time) string {
	return t.Format(time.DateOnly)
}

// InsertItem inserts item through q, filling its generated fields.
func InsertItem(ctx context.Context, q database.Querier, item *payment.Item) error {
	query := `
		INSERT INTO payment_items (
			item_name, total_amount, paid_amount, status, payment_type, start_date, end_date,
			project_id, category_id, source, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		item.ItemName,
		item.TotalAmount,
		item.PaidAmount,
		item.Status,
		item.PaymentType,
		item.StartDate,
		item.EndDate,
		item.ProjectID,
		item.CategoryID,
		item.Source,
		item.Notes,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating payment item: %w", err)
	}

	return nil
}

func (s *Store) CreateItem(ctx context.Context, item *payment.Item) error {
	return InsertItem(ctx, s.db, item)
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID, includeDeleted bool) (*payment.Item, error) {
	b := database.NewBuilder(`SELECT ` + itemColumns + ` FROM payment_items p WHERE true`).
		And("p.id = $%d", id).
		AndNotDeleted("p", includeDeleted)

	it, err := scanItem(s.db.QueryRowContext(ctx, b.SQL(), b.Args()...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("getting payment item: %w", err)
	}

	return it, nil
}

func (s *Store) ListItems(ctx context.Context, filter payment.StoreFilter) ([]*payment.Item, error) {
	b := database.NewBuilder(`SELECT ` + itemColumns + ` FROM payment_items p WHERE true`).
		AndNotDeleted("p", filter.IncludeDeleted)

	if filter.ProjectID != nil {
		b.And("p.project_id = $%d", *filter.ProjectID)
	}

	if filter.CategoryID != nil {
		b.And("p.category_id = $%d", *filter.CategoryID)
	}

	if filter.PaymentType != nil {
		b.And("p.payment_type = $%d", *filter.PaymentType)
	}

	b.Raw(" ORDER BY p.created_at DESC")

	rows, err := s.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("listing payment items: %w", err)
	}

	return scanItems(rows)
}

// UpdateItem locks the item, rejects a total below what its records sum to,
// writes the editable fields and refreshes paid_amount and status in the same
// transaction, copying the stored values back.
func (s *Store) UpdateItem(ctx context.Context, item *payment.Item, asOf time.Time) error {
	query := `
		UPDATE payment_items
		SET item_name = $1, total_amount = $2, payment_type = $3, start_date = $4,
			end_date = $5, project_id = $6, category_id = $7, notes = $8
		WHERE id = $9 AND is_deleted = false
	`

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update tx: %w", err)
	}
	defer dbTx.Rollback()

	locked, err := lockItem(ctx, dbTx, item.ID)
	if err != nil {
		return err
	}

	if item.TotalAmount.LessThan(locked.PaidAmount) {
		return payment.ErrTotalBelowPaid
	}

	ok, err := database.ExecAffected(ctx, dbTx, query,
		item.ItemName,
		item.TotalAmount,
		item.PaymentType,
		item.StartDate,
		item.EndDate,
		item.ProjectID,
		item.CategoryID,
		item.Notes,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating payment item: %w", err)
	}

	if !ok {
		return payment.ErrNotFound
	}

	updated, err := reconcile(ctx, dbTx, item.ID, asOf)
	if err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}

	*item = *updated

	return nil
}

func (s *Store) SoftDeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "payment_items", id)
	if err != nil {
		return false, fmt.Errorf("deleting payment item: %w", err)
	}

	return ok, nil
}

func (s *Store) RestoreItem(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.Restore(ctx, s.db, "payment_items", id)
	if err != nil {
		return false, fmt.Errorf("restoring payment item: %w", err)
	}

	return ok, nil
}

// DeleteItemPermanently removes the row; records and audit logs cascade. The
// receipt URLs of every record, deleted ones included, are collected first.
func (s *Store) DeleteItemPermanently(ctx context.Context, id uuid.UUID) ([]string, bool, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning purge tx: %w", err)
	}
	defer dbTx.Rollback()

	rows, err := dbTx.QueryContext(ctx, `
		SELECT receipt_image_url
		FROM payment_records
		WHERE item_id = $1 AND receipt_image_url IS NOT NULL AND receipt_image_url <> ''
	`, id)
	if err != nil {
		return nil, false, fmt.Errorf("listing receipts: %w", err)
	}
	defer rows.Close()

	var receipts []string

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, false, fmt.Errorf("scanning receipt: %w", err)
		}

		receipts = append(receipts, url)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating receipts: %w", err)
	}

	ok, err := database.ExecAffected(ctx, dbTx, `DELETE FROM payment_items WHERE id = $1`, id)
	if err != nil {
		return nil, false, fmt.Errorf("purging payment item: %w", err)
	}

	if !ok {
		return nil, false, nil
	}

	if err := dbTx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing purge: %w", err)
	}

	return receipts, true, nil
}

const recordColumns = `
	r.id, r.item_id, r.amount_paid, r.payment_date, r.payment_method,
	r.receipt_image_url, r.notes, r.is_deleted, r.deleted_at, r.created_at
`

func scanRecord(s database.Scanner) (*payment.Record, error) {
	var rec payment.Record

	var receipt sql.NullString

	if err := s.Scan(
		&rec.ID, &rec.ItemID, &rec.AmountPaid, &rec.PaymentDate, &rec.PaymentMethod,
		&receipt, &rec.Notes, &rec.IsDeleted, &rec.DeletedAt, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	rec.ReceiptImageURL = receipt.String

	return &rec, nil
}

func (s *Store) ListRecords(ctx context.Context, itemID uuid.UUID) ([]*payment.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_records r
		WHERE r.item_id = $1 AND ` + database.NotDeleted("r") + `
		ORDER BY r.payment_date DESC, r.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing payment records: %w", err)
	}
	defer rows.Close()

	var records []*payment.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment record: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment records: %w", err)
	}

	return records, nil
}

func reconcile(ctx context.Context, q database.Querier, id uuid.UUID, asOf time.Time) (*payment.Item, error) {
	it, err := scanItem(q.QueryRowContext(ctx, reconcileQuery, id, dateArg(asOf)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("reconciling payment item: %w", err)
	}

	return it, nil
}

func (s *Store) Reconcile(ctx context.Context, id uuid.UUID, asOf time.Time) (*payment.Item, error) {
	return reconcile(ctx, s.db, id, asOf)
}

// MarkOverdue flips unpaid items whose due day is before asOf.
func (s *Store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE payment_items
		SET status = 'overdue', updated_at = NOW()
		WHERE is_deleted = false
			AND status = 'pending'
			AND paid_amount = 0
			AND COALESCE(end_date, start_date) < $1::date
	`

	res, err := s.db.ExecContext(ctx, query, dateArg(asOf))
	if err != nil {
		return 0, fmt.Errorf("marking overdue items: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting overdue items: %w", err)
	}

	return n, nil
}

func (s *Store) ListDue(ctx context.Context, until time.Time) ([]*payment.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM payment_items p
		WHERE ` + database.NotDeleted("p") + `
			AND p.paid_amount < p.total_amount
			AND COALESCE(p.end_date, p.start_date) <= $1::date
		ORDER BY COALESCE(p.end_date, p.start_date) ASC`

	rows, err := s.db.QueryContext(ctx, query, dateArg(until))
	if err != nil {
		return nil, fmt.Errorf("listing due items: %w", err)
	}

	return scanItems(rows)
}

// InsertAuditLog writes log through q, filling its generated fields.
func InsertAuditLog(ctx context.Context, q database.Querier, log *payment.AuditLog) error {
	changes := log.Changes
	if changes == nil {
		changes = []payment.Change{}
	}

	raw, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("encoding audit changes: %w", err)
	}

	query := `
		INSERT INTO payment_audit_logs (item_id, action, changes, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	if err := q.QueryRowContext(ctx, query, log.ItemID, log.Action, raw).Scan(&log.ID, &log.CreatedAt); err != nil {
		return fmt.Errorf("creating audit log: %w", err)
	}

	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, log *payment.AuditLog) error {
	return InsertAuditLog(ctx, s.db, log)
}

func (s *Store) ListAuditLogs(ctx context.Context, itemID uuid.UUID) ([]*payment.AuditLog, error) {
	query := `
		SELECT id, item_id, action, changes, created_at
		FROM payment_audit_logs
		WHERE item_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*payment.AuditLog

	for rows.Next() {
		var (
			l      payment.AuditLog
			action string
			raw    []byte
		)

		if err := rows.Scan(&l.ID, &l.ItemID, &action, &raw, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}

		l.Action = payment.AuditAction(action)

		if err := json.Unmarshal(raw, &l.Changes); err != nil {
			return nil, fmt.Errorf("decoding audit changes: %w", err)
		}

		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return logs, nil
}

type paymentTx struct {
	tx     *sql.Tx
	itemID uuid.UUID
}

// BeginPayment opens the transaction in which one item's payments are applied.
func (s *Store) BeginPayment(ctx context.Context, itemID uuid.UUID) (payment.PaymentTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning payment tx: %w", err)
	}

	return &paymentTx{tx: dbTx, itemID: itemID}, nil
}

func (ptx *paymentTx) Commit() error   { return ptx.tx.Commit() }
func (ptx *paymentTx) Rollback() error { return ptx.tx.Rollback() }

func (ptx *paymentTx) LockItem(ctx context.Context) (*payment.Item, error) {
	return lockItem(ctx, ptx.tx, ptx.itemID)
}

// lockItem loads a live item FOR UPDATE with paid_amount summed from its records.
func lockItem(ctx context.Context, q database.Querier, id uuid.UUID) (*payment.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM payment_items p
		WHERE p.id = $1 AND ` + database.NotDeleted("p") + `
		FOR UPDATE`

	it, err := scanItem(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("locking payment item: %w", err)
	}

	sumQuery := `
		SELECT COALESCE(SUM(amount_paid), 0)
		FROM payment_records
		WHERE item_id = $1 AND is_deleted = false
	`

	if err := q.QueryRowContext(ctx, sumQuery, id).Scan(&it.PaidAmount); err != nil {
		return nil, fmt.Errorf("summing payment records: %w", err)
	}

	return it, nil
}

func (ptx *paymentTx) CreateRecord(ctx context.Context, rec *payment.Record) error {
	query := `
		INSERT INTO payment_records (
			item_id, amount_paid, payment_date, payment_method, receipt_image_url, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at
	`

	var receipt *string
	if rec.ReceiptImageURL != "" {
		receipt = &rec.ReceiptImageURL
	}

	err := ptx.tx.QueryRowContext(ctx, query,
		ptx.itemID,
		rec.AmountPaid,
		rec.PaymentDate,
		rec.PaymentMethod,
		receipt,
		rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating payment record: %w", err)
	}

	return nil
}

func (ptx *paymentTx) SoftDeleteRecord(ctx context.Context, recordID uuid.UUID) (bool, error) {
	query := `
		UPDATE payment_records
		SET is_deleted = true, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND item_id = $2 AND is_deleted = false
	`

	return database.ExecAffected(ctx, ptx.tx, query, recordID, ptx.itemID)
}

func (ptx *paymentTx) Reconcile(ctx context.Context, asOf time.Time) (*payment.Item, error) {
	return reconcile(ctx, ptx.tx, ptx.itemID, asOf)
}

func (ptx *paymentTx) CreateAuditLog(ctx context.Context, log *payment.AuditLog) error {
	return InsertAuditLog(ctx, ptx.tx, log)
}
