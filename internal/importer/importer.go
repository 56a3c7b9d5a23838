// Package importer turns spreadsheet exports of planned payments into payment items.
package importer

import (
	"fmt"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

var (
	ErrNoHeader = apperr.Invalid("no recognised header row; expected columns such as 项目名称/总金额/开始日期 or item_name/total_amount/start_date")
	ErrNoRows   = apperr.Invalid("the file contains no data rows")

	// ErrUnknownReference reports a row whose project or category is missing.
	ErrUnknownReference = apperr.Invalid("projectId or categoryId does not exist")
)

// RowError reports a row that could not be imported. Row is the 1-based line
// number in the file.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Row is a successfully parsed data row.
type Row struct {
	Line   int
	Params payment.CreateParams
}

// Parsed is the outcome of reading a file, before anything is stored.
type Parsed struct {
	Profile  string
	Encoding string
	Rows     []Row
	Errors   []RowError
}
