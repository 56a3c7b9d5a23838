// Package loan tracks money lent, borrowed or invested outside of payment items.
package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

type RecordType string

const (
	TypeLoan       RecordType = "loan"
	TypeInvestment RecordType = "investment"
)

func (t RecordType) Valid() bool {
	return t == TypeLoan || t == TypeInvestment
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

var (
	ErrNotFound         = apperr.NotFound("loan record not found")
	ErrInvalidAmount    = apperr.Invalid("payment amount must be greater than zero")
	ErrCompleted        = apperr.Conflict("loan record is already completed")
	ErrNoMonthlyPayment = apperr.Invalid("loan record has no monthly payment amount")
)

type Record struct {
	ID                   uuid.UUID
	RecordType           RecordType
	Name                 string
	Counterparty         string
	PrincipalAmount      decimal.Decimal
	AnnualInterestRate   decimal.Decimal
	MonthlyPaymentAmount *decimal.Decimal
	TotalPaidAmount      decimal.Decimal
	Status               Status
	StartDate            time.Time
	Notes                string
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outstanding is the principal not yet repaid, never negative.
func (r *Record) Outstanding() decimal.Decimal {
	o := r.PrincipalAmount.Sub(r.TotalPaidAmount)
	if o.IsNegative() {
		return decimal.Zero
	}

	return o
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

var (
	riskMedium   = decimal.NewFromInt(5)
	riskHigh     = decimal.NewFromInt(10)
	riskVeryHigh = decimal.NewFromInt(20)
)

// RiskLevelFor grades an annual interest rate given in percent.
func RiskLevelFor(rate decimal.Decimal) RiskLevel {
	switch {
	case rate.LessThan(riskMedium):
		return RiskLow
	case rate.LessThan(riskHigh):
		return RiskMedium
	case rate.LessThan(riskVeryHigh):
		return RiskHigh
	}

	return RiskVeryHigh
}

// TypeSummary totals the live records of one type.
type TypeSummary struct {
	RecordType  RecordType
	Count       int
	ActiveCount int
	Principal   decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}
