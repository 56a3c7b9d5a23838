package loan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/amortization"
	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=loan
type Repository interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]*Record, error)
	Update(ctx context.Context, r *Record) error
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
	Restore(ctx context.Context, id uuid.UUID) (bool, error)
	// AddPaid increments the paid total of an active record in one statement,
	// completing loans whose paid total reaches the principal.
	AddPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Record, error)
	Summary(ctx context.Context) ([]TypeSummary, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	RecordType     *RecordType
	Status         *Status
	IncludeDeleted bool
}

type Params struct {
	RecordType           RecordType
	Name                 string
	Counterparty         string
	PrincipalAmount      decimal.Decimal
	AnnualInterestRate   decimal.Decimal
	MonthlyPaymentAmount *decimal.Decimal
	StartDate            time.Time
	Notes                string
	// Status is honoured for investments only; a loan's status follows its payments.
	Status Status
}

var maxRate = decimal.NewFromInt(100)

func (p Params) validate() error {
	var fields []apperr.FieldError

	add := func(field, msg string) {
		fields = append(fields, apperr.FieldError{Field: field, Message: msg})
	}

	if !p.RecordType.Valid() {
		add("recordType", "must be loan or investment")
	}

	if strings.TrimSpace(p.Name) == "" {
		add("name", "is required")
	}

	if err := money.CheckPositive(p.PrincipalAmount); err != nil {
		add("principalAmount", err.Error())
	}

	if p.AnnualInterestRate.IsNegative() || p.AnnualInterestRate.GreaterThan(maxRate) {
		add("annualInterestRate", "must be between 0 and 100")
	}

	if p.MonthlyPaymentAmount != nil {
		if err := money.CheckPositive(*p.MonthlyPaymentAmount); err != nil {
			add("monthlyPaymentAmount", err.Error())
		}
	}

	if p.StartDate.IsZero() {
		add("startDate", "is required")
	}

	if p.Status != "" && !p.Status.Valid() {
		add("status", "must be active or completed")
	}

	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}

	return nil
}

func (p Params) apply(r *Record) {
	r.RecordType = p.RecordType
	r.Name = strings.TrimSpace(p.Name)
	r.Counterparty = strings.TrimSpace(p.Counterparty)
	r.PrincipalAmount = p.PrincipalAmount
	r.AnnualInterestRate = p.AnnualInterestRate
	r.MonthlyPaymentAmount = p.MonthlyPaymentAmount
	r.StartDate = p.StartDate
	r.Notes = p.Notes

	switch {
	case r.RecordType == TypeLoan && r.TotalPaidAmount.GreaterThanOrEqual(r.PrincipalAmount):
		r.Status = StatusCompleted
	case r.RecordType == TypeLoan:
		r.Status = StatusActive
	case p.Status != "":
		r.Status = p.Status
	case r.Status == "":
		r.Status = StatusActive
	}
}

func (s *Service) Create(ctx context.Context, params Params) (*Record, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	r := &Record{TotalPaidAmount: decimal.Zero}
	params.apply(r)

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params Params) (*Record, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	params.apply(r)

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotFound
	}

	return nil
}

func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*Record, error) {
	ok, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrNotFound
	}

	return s.repo.Get(ctx, id)
}

// RecordPayment adds amount to the record's paid total.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Record, error) {
	if money.CheckPositive(amount) != nil {
		return nil, ErrInvalidAmount
	}

	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.Status == StatusCompleted {
		return nil, ErrCompleted
	}

	updated, err := s.repo.AddPaid(ctx, id, amount)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Projection is a repayment schedule derived from a record's terms.
type Projection struct {
	Record        *Record
	RiskLevel     RiskLevel
	Periods       []amortization.Period
	TotalPeriods  int
	TotalInterest decimal.Decimal
	TotalPaid     decimal.Decimal
	Truncated     bool
}

// Schedule amortizes the record's principal at its rate and monthly payment,
// returning at most periods rows (amortization.PreviewPeriods when periods <= 0).
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, periods int) (*Projection, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.MonthlyPaymentAmount == nil {
		return nil, ErrNoMonthlyPayment
	}

	sched, err := amortization.Generate(r.PrincipalAmount, r.AnnualInterestRate, *r.MonthlyPaymentAmount)
	if err != nil {
		return nil, apperr.Invalid(err.Error())
	}

	if periods <= 0 {
		periods = amortization.PreviewPeriods
	}

	return &Projection{
		Record:        r,
		RiskLevel:     RiskLevelFor(r.AnnualInterestRate),
		Periods:       sched.Head(periods),
		TotalPeriods:  len(sched.Periods),
		TotalInterest: sched.TotalInterest,
		TotalPaid:     sched.TotalPaid,
		Truncated:     sched.Truncated,
	}, nil
}

func (s *Service) Summary(ctx context.Context) ([]TypeSummary, error) {
	return s.repo.Summary(ctx)
}
