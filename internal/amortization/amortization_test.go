package amortization_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caiwu/internal/amortization"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerate_InvalidInput(t *testing.T) {
	type args struct {
		principal, rate, payment string
	}

	tests := []struct {
		name string
		args args
	}{
		{name: "Zero Principal", args: args{"0", "6", "100"}},
		{name: "Zero Payment", args: args{"1000", "6", "0"}},
		{name: "Negative Rate", args: args{"1000", "-1", "100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := amortization.Generate(d(tt.args.principal), d(tt.args.rate), d(tt.args.payment))
			assert.ErrorIs(t, err, amortization.ErrInvalidInput)
		})
	}
}

func TestGenerate_PaymentBelowInterest(t *testing.T) {
	// 100000 at 12% accrues exactly 1000 in the first month.
	for _, payment := range []string{"1000", "500"} {
		sched, err := amortization.Generate(d("100000"), d("12"), d(payment))
		assert.ErrorIs(t, err, amortization.ErrPaymentBelowInterest, "payment %s", payment)
		assert.Empty(t, sched.Periods)
	}
}

func TestGenerate_PaysOff(t *testing.T) {
	sched, err := amortization.Generate(d("100000"), d("6"), d("3000"))
	require.NoError(t, err)

	require.NotEmpty(t, sched.Periods)
	assert.LessOrEqual(t, len(sched.Periods), amortization.MaxPeriods)
	assert.False(t, sched.Truncated)

	first := sched.Periods[0]
	assert.Equal(t, 1, first.Number)
	assert.True(t, d("500").Equal(first.Interest), "interest %s", first.Interest)
	assert.True(t, d("2500").Equal(first.Principal), "principal %s", first.Principal)
	assert.True(t, d("97500").Equal(first.RemainingBalance))

	last := sched.Periods[len(sched.Periods)-1]
	assert.False(t, last.RemainingBalance.IsNegative())
	assert.True(t, last.RemainingBalance.IsZero())
	assert.True(t, last.Payment.LessThanOrEqual(d("3000")))

	principalSum := decimal.Zero
	for i, p := range sched.Periods {
		assert.Equal(t, i+1, p.Number)
		principalSum = principalSum.Add(p.Principal)
	}

	assert.True(t, d("100000").Equal(principalSum), "principal sum %s", principalSum)
	assert.True(t, sched.TotalPaid.Equal(d("100000").Add(sched.TotalInterest)))
}

func TestGenerate_ZeroRate(t *testing.T) {
	sched, err := amortization.Generate(d("1200"), d("0"), d("100"))
	require.NoError(t, err)

	assert.Len(t, sched.Periods, 12)
	assert.True(t, sched.TotalInterest.IsZero())
	assert.True(t, sched.Periods[11].RemainingBalance.IsZero())
}

func TestGenerate_Truncated(t *testing.T) {
	// 501 barely beats the 500 monthly interest.
	sched, err := amortization.Generate(d("100000"), d("6"), d("501"))
	require.NoError(t, err)

	assert.Len(t, sched.Periods, amortization.MaxPeriods)
	assert.True(t, sched.Truncated)
	assert.True(t, sched.Periods[len(sched.Periods)-1].RemainingBalance.IsPositive())
}

func TestSchedule_Head(t *testing.T) {
	sched, err := amortization.Generate(d("100000"), d("12"), d("2000"))
	require.NoError(t, err)
	require.Greater(t, len(sched.Periods), amortization.PreviewPeriods)

	assert.Len(t, sched.Head(amortization.PreviewPeriods), amortization.PreviewPeriods)
	assert.Len(t, sched.Head(1000), len(sched.Periods))
	assert.Len(t, sched.Head(-1), len(sched.Periods))
}
