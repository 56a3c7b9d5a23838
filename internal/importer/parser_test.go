package importer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/MrJamesThe3rd/caiwu/internal/importer"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParser_Chinese(t *testing.T) {
	csv := `2024年度付款计划
导出时间,2024-06-01

项目名称,总金额,付款类型,开始日期,结束日期,备注
办公室租金,"¥8,000.00",月付,2024-06-01,2024-12-31,每月1号
装修尾款,30000,一次性,2024/7/15,,
设备分期,12000.50,分期,2024年8月1日,2025年7月31日,12期
`

	got, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got.Rows, 3)
	assert.Empty(t, got.Errors)
	assert.Equal(t, "zh", got.Profile)
	assert.Equal(t, "UTF-8", got.Encoding)

	rent := got.Rows[0]
	assert.Equal(t, 5, rent.Line)
	assert.Equal(t, "办公室租金", rent.Params.ItemName)
	assert.Equal(t, "8000", rent.Params.TotalAmount.String())
	assert.Equal(t, payment.TypeMonthly, rent.Params.PaymentType)
	assert.Equal(t, date(2024, 6, 1), rent.Params.StartDate)
	require.NotNil(t, rent.Params.EndDate)
	assert.Equal(t, date(2024, 12, 31), *rent.Params.EndDate)
	assert.Equal(t, "每月1号", rent.Params.Notes)
	assert.Equal(t, payment.SourceManual, rent.Params.Source)

	fitout := got.Rows[1]
	assert.Equal(t, payment.TypeSingle, fitout.Params.PaymentType)
	assert.Equal(t, date(2024, 7, 15), fitout.Params.StartDate)
	assert.Nil(t, fitout.Params.EndDate)

	equipment := got.Rows[2]
	assert.Equal(t, payment.TypeInstallment, equipment.Params.PaymentType)
	assert.Equal(t, "12000.5", equipment.Params.TotalAmount.String())
	assert.Equal(t, date(2024, 8, 1), equipment.Params.StartDate)
}

func TestParser_English(t *testing.T) {
	csv := "Item Name;Total Amount;Payment Type;Start Date;Notes\n" +
		"Office Rent;8000;monthly;2024-06-01;\n" +
		"Insurance;1,200.00;SINGLE;2024-09-30;annual\n"

	got, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "en", got.Profile)

	assert.Equal(t, "Office Rent", got.Rows[0].Params.ItemName)
	assert.Equal(t, payment.TypeMonthly, got.Rows[0].Params.PaymentType)
	assert.Equal(t, "1200", got.Rows[1].Params.TotalAmount.String())
	assert.Equal(t, payment.TypeSingle, got.Rows[1].Params.PaymentType)
	assert.Equal(t, "annual", got.Rows[1].Params.Notes)
}

func TestParser_TabDelimited(t *testing.T) {
	csv := "item_name\ttotal_amount\tstart_date\n水费\t120.50\t20240615\n"

	got, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "水费", got.Rows[0].Params.ItemName)
	assert.Equal(t, date(2024, 6, 15), got.Rows[0].Params.StartDate)
}

func TestParser_GB18030(t *testing.T) {
	utf8CSV := "项目名称,总金额,开始日期\n物业管理费,3600,2024-01-01\n停车费,600,2024-01-01\n"

	gb, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	got, err := importer.NewParser().Parse(bytes.NewReader(gb))
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)

	assert.Equal(t, "GB18030", got.Encoding)
	assert.Equal(t, "物业管理费", got.Rows[0].Params.ItemName)
}

func TestParser_RowErrors(t *testing.T) {
	csv := `项目名称,总金额,付款类型,开始日期,结束日期
房租,8000,月付,2024-06-01,
,100,,2024-06-01,
网费,abc,,2024-06-01,
电费,-5,,2024-06-01,
保险,1000,季付,2024-06-01,
押金,1000,,下个月,
尾款,1000,,2024-06-01,2024-05-01
利息,10.005,,2024-06-01,

`

	got, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, got.Rows, 1)
	assert.Equal(t, "房租", got.Rows[0].Params.ItemName)

	type testCase struct {
		row     int
		message string
	}

	want := []testCase{
		{row: 3, message: "item name"},
		{row: 4, message: "invalid amount"},
		{row: 5, message: "greater than zero"},
		{row: 6, message: "unknown payment type"},
		{row: 7, message: "unrecognised date"},
		{row: 8, message: "before start date"},
		{row: 9, message: "two decimal places"},
	}

	require.Len(t, got.Errors, len(want))

	for i, w := range want {
		assert.Equal(t, w.row, got.Errors[i].Row)
		assert.Contains(t, got.Errors[i].Message, w.message)
	}
}

func TestParser_NoHeader(t *testing.T) {
	_, err := importer.NewParser().Parse(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, importer.ErrNoHeader)

	_, err = importer.NewParser().Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, importer.ErrNoHeader)
}

func TestParser_HeaderOnly(t *testing.T) {
	got, err := importer.NewParser().Parse(strings.NewReader("项目名称,总金额,开始日期\n"))
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
	assert.Empty(t, got.Errors)
}

func TestParser_DifferentColumnOrder(t *testing.T) {
	csv := "备注,开始日期,总金额,项目名称\n加急,2024-06-03,500,快递费\n"

	got, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)

	assert.Equal(t, "快递费", got.Rows[0].Params.ItemName)
	assert.Equal(t, "500", got.Rows[0].Params.TotalAmount.String())
	assert.Equal(t, "加急", got.Rows[0].Params.Notes)
}
