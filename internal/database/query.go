package database

import (
	"fmt"
	"strings"
)

// Builder accumulates a SQL statement and its positional arguments.
// Conditions use a single %d verb for the placeholder index, e.g. "t.status = $%d".
type Builder struct {
	sb   strings.Builder
	args []any
}

func NewBuilder(base string) *Builder {
	b := &Builder{}
	b.sb.WriteString(base)

	return b
}

// And appends " AND <cond>" bound to arg.
func (b *Builder) And(cond string, arg any) *Builder {
	b.args = append(b.args, arg)
	b.sb.WriteString(" AND ")
	b.sb.WriteString(fmt.Sprintf(cond, len(b.args)))

	return b
}

// AndNotDeleted applies the soft-delete rule for the given table alias unless
// deleted rows were explicitly requested.
func (b *Builder) AndNotDeleted(alias string, includeDeleted bool) *Builder {
	if includeDeleted {
		return b
	}

	b.sb.WriteString(" AND ")
	b.sb.WriteString(NotDeleted(alias))

	return b
}

// Raw appends s verbatim.
func (b *Builder) Raw(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Arg binds a value and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *Builder) SQL() string { return b.sb.String() }
func (b *Builder) Args() []any { return b.args }
