package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/encoding"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

// headerScanRows bounds how far down the file the header may appear.
const headerScanRows = 20

var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"2006.1.2",
	"20060102",
	"2006年1月2日",
	"2006年01月02日",
}

// Parser reads CSV exports of planned payments. It detects the text encoding,
// the delimiter and which header vocabulary is in use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (*Parsed, error) {
	utf8r, charset, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows  [][]string
		lines []int
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, apperr.Invalid(fmt.Sprintf("malformed CSV: %v", err))
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}

	profile, cols, headerIdx := detectProfile(rows[:min(len(rows), headerScanRows)])
	if profile == nil {
		return nil, ErrNoHeader
	}

	parsed := &Parsed{Profile: profile.Name, Encoding: string(charset)}

	for i := headerIdx + 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}

		params, err := parseRow(cols, rows[i])
		if err != nil {
			parsed.Errors = append(parsed.Errors, RowError{Row: lines[i], Message: err.Error()})
			continue
		}

		parsed.Rows = append(parsed.Rows, Row{Line: lines[i], Params: params})
	}

	return parsed, nil
}

func parseRow(cols colIndex, row []string) (payment.CreateParams, error) {
	params := payment.CreateParams{Source: payment.SourceManual}

	params.ItemName = cellValue(row, cols, fieldName)
	if params.ItemName == "" {
		return params, errors.New("item name is empty")
	}

	total, err := money.ParsePositive(cellValue(row, cols, fieldTotal))
	if err != nil {
		return params, fmt.Errorf("total amount %q: %w", cellValue(row, cols, fieldTotal), err)
	}

	params.TotalAmount = total

	params.PaymentType = payment.TypeSingle

	if raw := cellValue(row, cols, fieldType); raw != "" {
		t, ok := paymentTypes[strings.ToLower(raw)]
		if !ok {
			return params, fmt.Errorf("unknown payment type %q", raw)
		}

		params.PaymentType = t
	}

	start, err := parseDate(cellValue(row, cols, fieldStart))
	if err != nil {
		return params, fmt.Errorf("start date: %w", err)
	}

	params.StartDate = start

	if raw := cellValue(row, cols, fieldEnd); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			return params, fmt.Errorf("end date: %w", err)
		}

		if end.Before(start) {
			return params, errors.New("end date is before start date")
		}

		params.EndDate = &end
	}

	params.Notes = cellValue(row, cols, fieldNotes)

	return params, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("is empty")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// sniffDelimiter picks the candidate occurring most often outside quotes on
// the first line that contains any of them, defaulting to a comma.
func sniffDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t'}

	for line := range strings.Lines(string(data)) {
		if strings.TrimSpace(line) == "" {
			continue
		}

		counts := make(map[rune]int, len(candidates))
		inQuotes := false

		for _, r := range line {
			switch {
			case r == '"':
				inQuotes = !inQuotes
			case !inQuotes:
				counts[r]++
			}
		}

		best, bestCount := ',', 0

		for _, c := range candidates {
			if counts[c] > bestCount {
				best, bestCount = c, counts[c]
			}
		}

		if bestCount > 0 {
			return best
		}
	}

	return ','
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, cols colIndex, f field) string {
	idx, ok := cols[f]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
