package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

func TestParse(t *testing.T) {
	type testCase struct {
		name    string
		input   string
		want    string
		wantErr error
	}

	tests := []testCase{
		{name: "Plain", input: "1000.00", want: "1000"},
		{name: "Thousands", input: "1,234.56", want: "1234.56"},
		{name: "Yuan Sign", input: "¥ 88.8", want: "88.8"},
		{name: "Full Width Yuan", input: "￥1，200", want: "1200"},
		{name: "Suffix", input: "300元", want: "300"},
		{name: "Negative", input: "-20.5", want: "-20.5"},
		{name: "Empty", input: "  ", wantErr: money.ErrInvalid},
		{name: "Garbage", input: "abc", wantErr: money.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.Parse(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParsePositive(t *testing.T) {
	_, err := money.ParsePositive("0")
	assert.ErrorIs(t, err, money.ErrNotPositive)

	_, err = money.ParsePositive("-1")
	assert.ErrorIs(t, err, money.ErrNotPositive)

	_, err = money.ParsePositive("1.005")
	assert.ErrorIs(t, err, money.ErrTooPrecise)

	d, err := money.ParsePositive("400.00")
	assert.NoError(t, err)
	assert.Equal(t, "400.00", money.Format(d))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1000.00", money.Format(decimal.NewFromInt(1000)))
	assert.Equal(t, "0.00", money.Format(decimal.Zero))
	assert.Nil(t, money.FormatPtr(nil))

	d := decimal.RequireFromString("12.5")
	assert.Equal(t, "12.50", *money.FormatPtr(&d))
}
