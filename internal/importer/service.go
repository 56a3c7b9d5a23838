package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=importer
type Payments interface {
	CreateBatch(ctx context.Context, params []payment.CreateParams) []payment.BatchResult
}

type Service struct {
	parser   *Parser
	payments Payments
}

func NewService(payments Payments) *Service {
	return &Service{parser: NewParser(), payments: payments}
}

// Options are applied to every imported item.
type Options struct {
	ProjectID  uuid.UUID
	CategoryID *uuid.UUID
}

// Report summarises an import. Rows that fail parsing or creation are listed
// in Errors; the rest are created.
type Report struct {
	Profile  string
	Encoding string
	Total    int
	Created  []*payment.Item
	Errors   []RowError
}

func (s *Service) Import(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	if opts.ProjectID == uuid.Nil {
		return nil, apperr.Validation(apperr.FieldError{Field: "projectId", Message: "is required"})
	}

	parsed, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}

	if len(parsed.Rows) == 0 && len(parsed.Errors) == 0 {
		return nil, ErrNoRows
	}

	report := &Report{
		Profile:  parsed.Profile,
		Encoding: parsed.Encoding,
		Total:    len(parsed.Rows) + len(parsed.Errors),
		Errors:   parsed.Errors,
	}

	if len(parsed.Rows) > 0 {
		params := make([]payment.CreateParams, len(parsed.Rows))
		for i, row := range parsed.Rows {
			row.Params.ProjectID = opts.ProjectID
			row.Params.CategoryID = opts.CategoryID
			params[i] = row.Params
		}

		for _, res := range s.payments.CreateBatch(ctx, params) {
			if res.Err != nil {
				if database.IsForeignKeyViolation(res.Err) {
					res.Err = ErrUnknownReference
				}

				if _, ok := apperr.As(res.Err); !ok {
					slog.ErrorContext(ctx, "failed to create imported item", "row", parsed.Rows[res.Index].Line, "error", res.Err)
				}

				report.Errors = append(report.Errors, RowError{Row: parsed.Rows[res.Index].Line, Message: describe(res.Err)})
				continue
			}

			report.Created = append(report.Created, res.Item)
		}
	}

	sortErrors(report.Errors)

	slog.InfoContext(ctx, "payment items imported",
		"profile", report.Profile,
		"encoding", report.Encoding,
		"created", len(report.Created),
		"failed", len(report.Errors),
	)

	return report, nil
}

// describe flattens a creation error into a message for the import report.
// Internal errors are not exposed.
func describe(err error) string {
	ae, ok := apperr.As(err)
	if !ok {
		return "could not be saved"
	}

	if len(ae.Fields) == 0 {
		return ae.Message
	}

	parts := make([]string, len(ae.Fields))
	for i, f := range ae.Fields {
		parts[i] = fmt.Sprintf("%s %s", f.Field, f.Message)
	}

	return strings.Join(parts, "; ")
}

func sortErrors(errs []RowError) {
	slices.SortStableFunc(errs, func(a, b RowError) int { return a.Row - b.Row })
}
