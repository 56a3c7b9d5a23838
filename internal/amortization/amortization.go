// Package amortization breaks a fixed monthly loan payment into principal and
// interest portions period by period.
package amortization

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxPeriods bounds every schedule to 30 years of monthly payments.
const MaxPeriods = 360

// PreviewPeriods is the number of periods shown by default.
const PreviewPeriods = 24

var (
	ErrInvalidInput = errors.New("principal and monthly payment must be positive and the rate must not be negative")
	// ErrPaymentBelowInterest means the monthly payment does not even cover the
	// first period's interest, so the balance would never decrease.
	ErrPaymentBelowInterest = errors.New("monthly payment does not cover the interest")
)

var (
	hundred       = decimal.NewFromInt(100)
	twelve        = decimal.NewFromInt(12)
	minBalance    = decimal.RequireFromString("0.01")
	ratePrecision = int32(10)
)

// Period is one row of the schedule.
type Period struct {
	Number           int
	Payment          decimal.Decimal
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Schedule is the result of Generate.
type Schedule struct {
	Periods       []Period
	TotalInterest decimal.Decimal
	TotalPaid     decimal.Decimal
	// Truncated is set when MaxPeriods was reached with a balance still owed.
	Truncated bool
}

// Head returns at most the first n periods.
func (s Schedule) Head(n int) []Period {
	if n < 0 || n >= len(s.Periods) {
		return s.Periods
	}

	return s.Periods[:n]
}

// Generate builds the schedule for principal repaid by monthlyPayment at
// annualRatePct percent per year.
func Generate(principal, annualRatePct, monthlyPayment decimal.Decimal) (Schedule, error) {
	if !principal.IsPositive() || !monthlyPayment.IsPositive() || annualRatePct.IsNegative() {
		return Schedule{}, ErrInvalidInput
	}

	monthlyRate := annualRatePct.DivRound(hundred, ratePrecision).DivRound(twelve, ratePrecision)

	var (
		balance = principal
		sched   = Schedule{TotalInterest: decimal.Zero, TotalPaid: decimal.Zero}
	)

	for n := 1; n <= MaxPeriods; n++ {
		interest := balance.Mul(monthlyRate).Round(2)
		principalPart := monthlyPayment.Sub(interest)

		if !principalPart.IsPositive() {
			if n == 1 {
				return Schedule{}, ErrPaymentBelowInterest
			}

			break
		}

		// The last payment only covers what is left.
		if principalPart.GreaterThan(balance) {
			principalPart = balance
		}

		balance = balance.Sub(principalPart)
		payment := principalPart.Add(interest)

		sched.Periods = append(sched.Periods, Period{
			Number:           n,
			Payment:          payment,
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: balance,
		})
		sched.TotalInterest = sched.TotalInterest.Add(interest)
		sched.TotalPaid = sched.TotalPaid.Add(payment)

		if balance.LessThan(minBalance) {
			return sched, nil
		}
	}

	sched.Truncated = true

	return sched, nil
}
