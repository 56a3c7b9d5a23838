package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=payment
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Item, error)
	ListItems(ctx context.Context, filter StoreFilter) ([]*Item, error)
	// UpdateItem writes the editable fields and re-derives paid amount and status.
	UpdateItem(ctx context.Context, item *Item, asOf time.Time) error
	SoftDeleteItem(ctx context.Context, id uuid.UUID) (bool, error)
	RestoreItem(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteItemPermanently returns the receipt URLs of the removed records.
	DeleteItemPermanently(ctx context.Context, id uuid.UUID) ([]string, bool, error)

	ListRecords(ctx context.Context, itemID uuid.UUID) ([]*Record, error)
	Reconcile(ctx context.Context, id uuid.UUID, asOf time.Time) (*Item, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	ListDue(ctx context.Context, until time.Time) ([]*Item, error)

	CreateAuditLog(ctx context.Context, log *AuditLog) error
	ListAuditLogs(ctx context.Context, itemID uuid.UUID) ([]*AuditLog, error)

	BeginPayment(ctx context.Context, itemID uuid.UUID) (PaymentTx, error)
}

// PaymentTx serialises payment mutations of one item behind a row lock.
type PaymentTx interface {
	// LockItem loads the live item FOR UPDATE with its paid amount summed from records.
	LockItem(ctx context.Context) (*Item, error)
	CreateRecord(ctx context.Context, rec *Record) error
	SoftDeleteRecord(ctx context.Context, recordID uuid.UUID) (bool, error)
	Reconcile(ctx context.Context, asOf time.Time) (*Item, error)
	CreateAuditLog(ctx context.Context, log *AuditLog) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, used to decide whether an item is overdue.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	return s
}

type CreateParams struct {
	ItemName    string
	TotalAmount decimal.Decimal
	PaymentType PaymentType
	StartDate   time.Time
	EndDate     *time.Time
	ProjectID   uuid.UUID
	CategoryID  *uuid.UUID
	Source      Source
	Notes       string
}

// NewItem validates params and builds an unpaid item with its initial status.
func NewItem(params CreateParams, now time.Time) (*Item, error) {
	if params.Source == "" {
		params.Source = SourceManual
	}

	item := &Item{
		ItemName:    strings.TrimSpace(params.ItemName),
		TotalAmount: params.TotalAmount,
		PaidAmount:  decimal.Zero,
		PaymentType: params.PaymentType,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		ProjectID:   params.ProjectID,
		CategoryID:  params.CategoryID,
		Source:      params.Source,
		Notes:       params.Notes,
	}

	if err := validateItem(item); err != nil {
		return nil, err
	}

	item.Status = ClassifyStatus(item.PaidAmount, item.TotalAmount, item.DueDate(), now)

	return item, nil
}

func validateItem(it *Item) error {
	var fields []apperr.FieldError

	add := func(field, msg string) {
		fields = append(fields, apperr.FieldError{Field: field, Message: msg})
	}

	if it.ItemName == "" {
		add("itemName", "is required")
	} else if len([]rune(it.ItemName)) > 200 {
		add("itemName", "must be at most 200 characters")
	}

	if err := money.CheckPositive(it.TotalAmount); err != nil {
		add("totalAmount", err.Error())
	}

	if !it.PaymentType.Valid() {
		add("paymentType", "must be one of monthly, installment, single")
	}

	if it.StartDate.IsZero() {
		add("startDate", "is required")
	}

	if it.EndDate != nil && !it.StartDate.IsZero() && it.EndDate.Before(it.StartDate) {
		add("endDate", "must not be before startDate")
	}

	if it.ProjectID == uuid.Nil {
		add("projectId", "is required")
	}

	if !it.Source.Valid() {
		add("source", "must be manual or ai_scan")
	}

	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}

	return nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Item, error) {
	item, err := NewItem(params, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.audit(ctx, item.ID, ActionCreate, nil)

	return item, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetItem(ctx, id, false)
}

// StoreFilter is the part of a listing resolved by the store.
type StoreFilter struct {
	ProjectID      *uuid.UUID
	CategoryID     *uuid.UUID
	PaymentType    *PaymentType
	IncludeDeleted bool
}

type ListFilter struct {
	StoreFilter
	Criteria  Criteria
	SortKey   SortKey
	Direction Direction
	Page      int
	PageSize  int
}

type ListResult struct {
	Items []*Item
	Page  PageInfo
}

// List narrows the store result in memory, then sorts and paginates it.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	items, err := s.repo.ListItems(ctx, filter.StoreFilter)
	if err != nil {
		return nil, err
	}

	items = FilterItems(items, filter.Criteria)
	items = SortItems(items, filter.SortKey, filter.Direction)
	page, info := Paginate(items, filter.Page, filter.PageSize)

	return &ListResult{Items: page, Page: info}, nil
}

type UpdateParams struct {
	ItemName    string
	TotalAmount decimal.Decimal
	PaymentType PaymentType
	StartDate   time.Time
	EndDate     *time.Time
	ProjectID   uuid.UUID
	CategoryID  *uuid.UUID
	Notes       string
}

// Update replaces every editable field.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Item, error) {
	current, err := s.repo.GetItem(ctx, id, false)
	if err != nil {
		return nil, err
	}

	next := *current
	next.ItemName = strings.TrimSpace(params.ItemName)
	next.TotalAmount = params.TotalAmount
	next.PaymentType = params.PaymentType
	next.StartDate = params.StartDate
	next.EndDate = params.EndDate
	next.ProjectID = params.ProjectID
	next.CategoryID = params.CategoryID
	next.Notes = params.Notes

	return s.save(ctx, current, &next)
}

// PatchParams carries only the fields to change. Clear* unset optional fields.
type PatchParams struct {
	ItemName        *string
	TotalAmount     *decimal.Decimal
	PaymentType     *PaymentType
	StartDate       *time.Time
	EndDate         *time.Time
	ClearEndDate    bool
	ProjectID       *uuid.UUID
	CategoryID      *uuid.UUID
	ClearCategoryID bool
	Notes           *string
}

// Patch merges params onto the stored item and validates the merged result.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, params PatchParams) (*Item, error) {
	current, err := s.repo.GetItem(ctx, id, false)
	if err != nil {
		return nil, err
	}

	next := *current

	if params.ItemName != nil {
		next.ItemName = strings.TrimSpace(*params.ItemName)
	}

	if params.TotalAmount != nil {
		next.TotalAmount = *params.TotalAmount
	}

	if params.PaymentType != nil {
		next.PaymentType = *params.PaymentType
	}

	if params.StartDate != nil {
		next.StartDate = *params.StartDate
	}

	switch {
	case params.ClearEndDate:
		next.EndDate = nil
	case params.EndDate != nil:
		next.EndDate = params.EndDate
	}

	if params.ProjectID != nil {
		next.ProjectID = *params.ProjectID
	}

	switch {
	case params.ClearCategoryID:
		next.CategoryID = nil
	case params.CategoryID != nil:
		next.CategoryID = params.CategoryID
	}

	if params.Notes != nil {
		next.Notes = *params.Notes
	}

	return s.save(ctx, current, &next)
}

func (s *Service) save(ctx context.Context, current, next *Item) (*Item, error) {
	if err := validateItem(next); err != nil {
		return nil, err
	}

	if next.TotalAmount.LessThan(current.PaidAmount) {
		return nil, ErrTotalBelowPaid
	}

	now := s.now()
	next.Status = ClassifyStatus(next.PaidAmount, next.TotalAmount, next.DueDate(), now)

	if err := s.repo.UpdateItem(ctx, next, now); err != nil {
		return nil, err
	}

	if changes := diff(current, next); len(changes) > 0 {
		s.audit(ctx, next.ID, ActionUpdate, changes)
	}

	return next, nil
}

// Delete hides an item; it can be brought back with Restore.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SoftDeleteItem(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotFound
	}

	s.audit(ctx, id, ActionDelete, nil)

	return nil
}

// Restore undeletes an item and refreshes its derived fields.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*Item, error) {
	ok, err := s.repo.RestoreItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrNotFound
	}

	s.audit(ctx, id, ActionRestore, nil)

	return s.repo.Reconcile(ctx, id, s.now())
}

// DeletePermanent removes an item together with its records and history.
// The receipt URLs of the removed records are returned for the caller to purge.
func (s *Service) DeletePermanent(ctx context.Context, id uuid.UUID) ([]string, error) {
	receipts, ok, err := s.repo.DeleteItemPermanently(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrNotFound
	}

	slog.InfoContext(ctx, "payment item permanently deleted", "item_id", id, "receipts", len(receipts))

	return receipts, nil
}

type PaymentParams struct {
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   string
	ReceiptImageURL string
	Notes           string
}

// AddPayment records a payment and reconciles the item in one locked transaction.
// Amounts above the remaining balance are rejected and leave the item untouched.
func (s *Service) AddPayment(ctx context.Context, itemID uuid.UUID, params PaymentParams) (*Item, *Record, error) {
	if money.CheckPositive(params.Amount) != nil {
		return nil, nil, ErrInvalidAmount
	}

	ptx, err := s.repo.BeginPayment(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("begin payment: %w", err)
	}
	defer ptx.Rollback()

	item, err := ptx.LockItem(ctx)
	if err != nil {
		return nil, nil, err
	}

	if params.Amount.GreaterThan(item.Remaining()) {
		return nil, nil, ErrExceedsRemaining
	}

	now := s.now()

	rec := &Record{
		ItemID:          itemID,
		AmountPaid:      params.Amount,
		PaymentDate:     params.PaymentDate,
		PaymentMethod:   strings.TrimSpace(params.PaymentMethod),
		ReceiptImageURL: params.ReceiptImageURL,
		Notes:           params.Notes,
	}
	if rec.PaymentDate.IsZero() {
		rec.PaymentDate = civilDate(now)
	}

	if err := ptx.CreateRecord(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("create record: %w", err)
	}

	updated, err := ptx.Reconcile(ctx, now)
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: %w", err)
	}

	if err := ptx.CreateAuditLog(ctx, &AuditLog{
		ItemID:  itemID,
		Action:  ActionPaymentAdded,
		Changes: derivedChanges(item, updated),
	}); err != nil {
		return nil, nil, fmt.Errorf("audit payment: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit payment: %w", err)
	}

	return updated, rec, nil
}

// DeletePayment soft-deletes a record and reconciles the item in one locked transaction.
func (s *Service) DeletePayment(ctx context.Context, itemID, recordID uuid.UUID) (*Item, error) {
	ptx, err := s.repo.BeginPayment(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("begin payment: %w", err)
	}
	defer ptx.Rollback()

	item, err := ptx.LockItem(ctx)
	if err != nil {
		return nil, err
	}

	ok, err := ptx.SoftDeleteRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}

	if !ok {
		return nil, ErrRecordNotFound
	}

	updated, err := ptx.Reconcile(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	if err := ptx.CreateAuditLog(ctx, &AuditLog{
		ItemID:  itemID,
		Action:  ActionPaymentDeleted,
		Changes: derivedChanges(item, updated),
	}); err != nil {
		return nil, fmt.Errorf("audit payment: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	return updated, nil
}

func (s *Service) ListPayments(ctx context.Context, itemID uuid.UUID) ([]*Record, error) {
	if _, err := s.repo.GetItem(ctx, itemID, true); err != nil {
		return nil, err
	}

	return s.repo.ListRecords(ctx, itemID)
}

// Reconcile recomputes the paid amount from the item's records and re-derives its status.
func (s *Service) Reconcile(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.Reconcile(ctx, id, s.now())
}

func (s *Service) AuditLogs(ctx context.Context, id uuid.UUID) ([]*AuditLog, error) {
	if _, err := s.repo.GetItem(ctx, id, true); err != nil {
		return nil, err
	}

	return s.repo.ListAuditLogs(ctx, id)
}

// RefreshOverdue flips unpaid items past their due date to overdue.
func (s *Service) RefreshOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.MarkOverdue(ctx, now)
}

// DueItems lists live, unsettled items due on or before until.
func (s *Service) DueItems(ctx context.Context, until time.Time) ([]*Item, error) {
	return s.repo.ListDue(ctx, until)
}

type BatchResult struct {
	Index int
	Item  *Item
	Err   error
}

// CreateBatch creates each item independently; a failing row does not affect the others.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) []BatchResult {
	results := make([]BatchResult, 0, len(params))

	for i, p := range params {
		item, err := s.Create(ctx, p)
		results = append(results, BatchResult{Index: i, Item: item, Err: err})
	}

	return results
}

// audit records history on a best-effort basis; the mutation already happened.
func (s *Service) audit(ctx context.Context, itemID uuid.UUID, action AuditAction, changes []Change) {
	if err := s.repo.CreateAuditLog(ctx, &AuditLog{ItemID: itemID, Action: action, Changes: changes}); err != nil {
		slog.ErrorContext(ctx, "failed to write audit log", "item_id", itemID, "action", action, "error", err)
	}
}

func diff(a, b *Item) []Change {
	var changes []Change

	add := func(field, before, after string) {
		if before != after {
			changes = append(changes, Change{Field: field, Old: before, New: after})
		}
	}

	add("itemName", a.ItemName, b.ItemName)
	add("totalAmount", money.Format(a.TotalAmount), money.Format(b.TotalAmount))
	add("paymentType", string(a.PaymentType), string(b.PaymentType))
	add("startDate", formatDate(&a.StartDate), formatDate(&b.StartDate))
	add("endDate", formatDate(a.EndDate), formatDate(b.EndDate))
	add("projectId", a.ProjectID.String(), b.ProjectID.String())
	add("categoryId", formatID(a.CategoryID), formatID(b.CategoryID))
	add("notes", a.Notes, b.Notes)
	add("status", string(a.Status), string(b.Status))

	return changes
}

func derivedChanges(before, after *Item) []Change {
	changes := []Change{{
		Field: "paidAmount",
		Old:   money.Format(before.PaidAmount),
		New:   money.Format(after.PaidAmount),
	}}

	if before.Status != after.Status {
		changes = append(changes, Change{Field: "status", Old: string(before.Status), New: string(after.Status)})
	}

	return changes
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.Format(time.DateOnly)
}

func formatID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}

	return id.String()
}
