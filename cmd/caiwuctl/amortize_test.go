package main

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caiwu/internal/amortization"
)

func TestRenderSchedule(t *testing.T) {
	sched, err := amortization.Generate(
		decimal.RequireFromString("100000"),
		decimal.RequireFromString("6"),
		decimal.RequireFromString("3000"),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderSchedule(&buf, sched.Head(3), len(sched.Periods), sched.TotalInterest, sched.TotalPaid, sched.Truncated)

	out := buf.String()
	assert.Contains(t, out, "剩余本金")
	assert.Contains(t, out, "3000.00")
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "showing 3 of")
	assert.NotContains(t, out, "still owed")
}

func TestAmortizeCmd(t *testing.T) {
	type testCase struct {
		name    string
		args    []string
		wantErr string
		wantOut string
	}

	tests := []testCase{
		{
			name:    "Terms",
			args:    []string{"--principal", "1000", "--rate", "12", "--payment", "500", "--periods", "0"},
			wantOut: "total interest",
		},
		{
			name:    "PaymentBelowInterest",
			args:    []string{"--principal", "1000", "--rate", "12", "--payment", "5"},
			wantErr: amortization.ErrPaymentBelowInterest.Error(),
		},
		{
			name:    "MissingPayment",
			args:    []string{"--principal", "1000"},
			wantErr: "--payment is required",
		},
		{
			name:    "BadAmount",
			args:    []string{"--principal", "lots", "--payment", "10"},
			wantErr: `invalid --principal "lots"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := amortizeCmd()

			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetErr(&buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.wantOut)
		})
	}
}
