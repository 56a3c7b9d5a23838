package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
)

// Date is a calendar day serialised as "2006-01-02". Full RFC 3339
// timestamps are accepted on input and truncated to their date.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DatePtr converts an optional time, keeping nil.
func DatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}

	return new(NewDate(*t))
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = t

	return nil
}

// TimePtr returns nil for a nil or zero date.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}

	return new(d.Time)
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Date{t}, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}

	return NewDate(t), nil
}

// Query reads typed query parameters, collecting every malformed one.
type Query struct {
	values url.Values
	fields []apperr.FieldError
}

func NewQuery(r *http.Request) *Query {
	return &Query{values: r.URL.Query()}
}

func (q *Query) fail(name, msg string) {
	q.fields = append(q.fields, apperr.FieldError{Field: name, Message: msg})
}

func (q *Query) String(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *Query) UUID(name string) *uuid.UUID {
	s := q.String(name)
	if s == "" {
		return nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		q.fail(name, "must be a UUID")
		return nil
	}

	return &id
}

func (q *Query) Date(name string) *time.Time {
	s := q.String(name)
	if s == "" {
		return nil
	}

	d, err := ParseDate(s)
	if err != nil {
		q.fail(name, "must be a date (YYYY-MM-DD)")
		return nil
	}

	return &d.Time
}

func (q *Query) Int(name string, def int) int {
	s := q.String(name)
	if s == "" {
		return def
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		q.fail(name, "must be an integer")
		return def
	}

	return n
}

func (q *Query) Bool(name string) bool {
	s := q.String(name)
	if s == "" {
		return false
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		q.fail(name, "must be true or false")
		return false
	}

	return b
}

// Err returns a validation error listing every malformed parameter.
func (q *Query) Err() error {
	if len(q.fields) == 0 {
		return nil
	}

	return apperr.Validation(q.fields...)
}

// Nullable distinguishes an absent JSON field from an explicit null, which
// PATCH requests use to clear optional values.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true

	if string(b) == "null" {
		n.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	n.Value = &v

	return nil
}

// Cleared reports whether the field was sent as null.
func (n Nullable[T]) Cleared() bool {
	return n.Set && n.Value == nil
}
