package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SoftDelete is embedded by every entity that is hidden rather than purged.
type SoftDelete struct {
	IsDeleted bool
	DeletedAt *time.Time
}

// NotDeleted returns the predicate excluding soft-deleted rows of alias.
// An empty alias refers to the unqualified table.
func NotDeleted(alias string) string {
	if alias == "" {
		return "is_deleted = false"
	}

	return alias + ".is_deleted = false"
}

// MarkDeleted soft-deletes the row of table with the given id.
// It reports false when no live row matched.
func MarkDeleted(ctx context.Context, q Querier, table string, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = true, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = false`, table)

	return ExecAffected(ctx, q, query, id)
}

// Restore clears the soft-delete flag of the row of table with the given id.
// It reports false when no deleted row matched.
func Restore(ctx context.Context, q Querier, table string, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = false, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = true`, table)

	return ExecAffected(ctx, q, query, id)
}

// ExecAffected runs query and reports whether any row was affected.
func ExecAffected(ctx context.Context, q Querier, query string, args ...any) (bool, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
