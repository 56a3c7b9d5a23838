package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=budget
type Repository interface {
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	ListPlans(ctx context.Context) ([]*Plan, error)
	UpdatePlan(ctx context.Context, p *Plan) error
	DeletePlan(ctx context.Context, id uuid.UUID) (bool, error)

	CreateItem(ctx context.Context, it *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, planID uuid.UUID) ([]*Item, error)
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) (bool, error)

	BeginConversion(ctx context.Context, itemID uuid.UUID) (ConversionTx, error)
}

// ConversionTx turns one budget item into a payment item atomically.
type ConversionTx interface {
	// LockItem loads the live budget item FOR UPDATE.
	LockItem(ctx context.Context) (*Item, error)
	CreatePaymentItem(ctx context.Context, item *payment.Item) error
	CreateAuditLog(ctx context.Context, log *payment.AuditLog) error
	MarkConverted(ctx context.Context, paymentItemID uuid.UUID) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

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

type PlanParams struct {
	Name        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Notes       string
}

func (p PlanParams) validate() error {
	var fields []apperr.FieldError

	if strings.TrimSpace(p.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "is required"})
	}

	if p.PeriodStart.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "periodStart", Message: "is required"})
	}

	if p.PeriodEnd.IsZero() || p.PeriodEnd.Before(p.PeriodStart) {
		fields = append(fields, apperr.FieldError{Field: "periodEnd", Message: "must not be before periodStart"})
	}

	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}

	return nil
}

func (s *Service) CreatePlan(ctx context.Context, params PlanParams) (*Plan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	p := &Plan{
		Name:        strings.TrimSpace(params.Name),
		PeriodStart: params.PeriodStart,
		PeriodEnd:   params.PeriodEnd,
		Notes:       params.Notes,
	}

	if err := s.repo.CreatePlan(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	return s.repo.ListPlans(ctx)
}

// PlanDetail loads a plan with its items and totals.
func (s *Service) PlanDetail(ctx context.Context, id uuid.UUID) (*PlanDetail, error) {
	p, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}

	planned, converted := Totals(items)

	return &PlanDetail{Plan: p, Items: items, PlannedTotal: planned, ConvertedTotal: converted}, nil
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, params PlanParams) (*Plan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(params.Name)
	p.PeriodStart = params.PeriodStart
	p.PeriodEnd = params.PeriodEnd
	p.Notes = params.Notes

	if err := s.repo.UpdatePlan(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeletePlan(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrPlanNotFound
	}

	return nil
}

type ItemParams struct {
	ItemName      string
	PlannedAmount decimal.Decimal
	CategoryID    *uuid.UUID
	DueDate       *time.Time
	Notes         string
}

func (p ItemParams) validate() error {
	var fields []apperr.FieldError

	if strings.TrimSpace(p.ItemName) == "" {
		fields = append(fields, apperr.FieldError{Field: "itemName", Message: "is required"})
	}

	if err := money.CheckPositive(p.PlannedAmount); err != nil {
		fields = append(fields, apperr.FieldError{Field: "plannedAmount", Message: err.Error()})
	}

	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}

	return nil
}

func (p ItemParams) apply(it *Item) {
	it.ItemName = strings.TrimSpace(p.ItemName)
	it.PlannedAmount = p.PlannedAmount
	it.CategoryID = p.CategoryID
	it.DueDate = p.DueDate
	it.Notes = p.Notes
}

func (s *Service) AddItem(ctx context.Context, planID uuid.UUID, params ItemParams) (*Item, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPlan(ctx, planID); err != nil {
		return nil, err
	}

	it := &Item{PlanID: planID}
	params.apply(it)

	if err := s.repo.CreateItem(ctx, it); err != nil {
		return nil, err
	}

	return it, nil
}

// UpdateItem edits an item that has not been converted yet.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, params ItemParams) (*Item, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if it.ConvertedToPayment {
		return nil, ErrAlreadyConverted
	}

	params.apply(it)

	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return nil, err
	}

	return it, nil
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrItemNotFound
	}

	return nil
}

type ConvertParams struct {
	ProjectID   uuid.UUID
	PaymentType payment.PaymentType
	// StartDate defaults to the item's due date, then to today.
	StartDate *time.Time
	EndDate   *time.Time
}

// ConvertToPayment creates a payment item from a budget item exactly once.
func (s *Service) ConvertToPayment(ctx context.Context, itemID uuid.UUID, params ConvertParams) (*Item, *payment.Item, error) {
	tx, err := s.repo.BeginConversion(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("begin conversion: %w", err)
	}
	defer tx.Rollback()

	it, err := tx.LockItem(ctx)
	if err != nil {
		return nil, nil, err
	}

	if it.ConvertedToPayment {
		return nil, nil, ErrAlreadyConverted
	}

	now := s.now()

	start := now
	switch {
	case params.StartDate != nil:
		start = *params.StartDate
	case it.DueDate != nil:
		start = *it.DueDate
	}

	paymentType := params.PaymentType
	if paymentType == "" {
		paymentType = payment.TypeSingle
	}

	pi, err := payment.NewItem(payment.CreateParams{
		ItemName:    it.ItemName,
		TotalAmount: it.PlannedAmount,
		PaymentType: paymentType,
		StartDate:   start,
		EndDate:     params.EndDate,
		ProjectID:   params.ProjectID,
		CategoryID:  it.CategoryID,
		Source:      payment.SourceManual,
		Notes:       it.Notes,
	}, now)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.CreatePaymentItem(ctx, pi); err != nil {
		return nil, nil, fmt.Errorf("create payment item: %w", err)
	}

	if err := tx.CreateAuditLog(ctx, &payment.AuditLog{
		ItemID:  pi.ID,
		Action:  payment.ActionCreate,
		Changes: []payment.Change{{Field: "budgetItemId", New: it.ID.String()}},
	}); err != nil {
		return nil, nil, fmt.Errorf("audit payment item: %w", err)
	}

	if err := tx.MarkConverted(ctx, pi.ID); err != nil {
		return nil, nil, fmt.Errorf("mark converted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit conversion: %w", err)
	}

	it.ConvertedToPayment = true
	it.PaymentItemID = &pi.ID

	return it, pi, nil
}
