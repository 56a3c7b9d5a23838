package importer

import (
	"strings"

	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

type field int

const (
	fieldName field = iota
	fieldTotal
	fieldType
	fieldStart
	fieldEnd
	fieldNotes
)

// Profile describes one header vocabulary. Each field lists the header names
// accepted for it; matching ignores case and surrounding spaces.
type Profile struct {
	Name    string
	Columns map[field][]string
}

var required = []field{fieldName, fieldTotal, fieldStart}

// profiles are tried in order; the first whose required columns all appear wins.
var profiles = []Profile{
	{
		Name: "zh",
		Columns: map[field][]string{
			fieldName:  {"项目名称", "名称", "款项名称", "项目"},
			fieldTotal: {"总金额", "金额", "应付金额", "合同金额"},
			fieldType:  {"付款类型", "付款方式", "类型"},
			fieldStart: {"开始日期", "起始日期", "日期", "付款日期"},
			fieldEnd:   {"结束日期", "截止日期", "到期日期", "到期日"},
			fieldNotes: {"备注", "说明"},
		},
	},
	{
		Name: "en",
		Columns: map[field][]string{
			fieldName:  {"item_name", "item name", "name", "item"},
			fieldTotal: {"total_amount", "total amount", "amount", "total"},
			fieldType:  {"payment_type", "payment type", "type"},
			fieldStart: {"start_date", "start date", "date"},
			fieldEnd:   {"end_date", "end date", "due_date", "due date"},
			fieldNotes: {"notes", "note", "remarks", "description"},
		},
	},
}

// colIndex maps fields to their column in the row.
type colIndex map[field]int

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.Trim(s, "\ufeff\"")))
}

// match returns the column layout of header under p, or false when a required
// column is missing.
func (p *Profile) match(header []string) (colIndex, bool) {
	pos := make(map[string]int, len(header))

	for i, cell := range header {
		name := normalizeHeader(cell)
		if _, seen := pos[name]; name != "" && !seen {
			pos[name] = i
		}
	}

	cols := make(colIndex)

	for f, names := range p.Columns {
		for _, n := range names {
			if i, ok := pos[n]; ok {
				cols[f] = i
				break
			}
		}
	}

	for _, f := range required {
		if _, ok := cols[f]; !ok {
			return nil, false
		}
	}

	return cols, true
}

// detectProfile scans the leading rows for a header matching a known profile
// and returns it with its column layout and row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		for i := range profiles {
			if cols, ok := profiles[i].match(row); ok {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

var paymentTypes = map[string]payment.PaymentType{
	"monthly":     payment.TypeMonthly,
	"月付":          payment.TypeMonthly,
	"按月":          payment.TypeMonthly,
	"每月":          payment.TypeMonthly,
	"installment": payment.TypeInstallment,
	"分期":          payment.TypeInstallment,
	"分期付款":        payment.TypeInstallment,
	"single":      payment.TypeSingle,
	"一次性":         payment.TypeSingle,
	"单次":          payment.TypeSingle,
	"全款":          payment.TypeSingle,
}
