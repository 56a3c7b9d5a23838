package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

func TestBuilder(t *testing.T) {
	b := database.NewBuilder("SELECT id FROM payment_items t WHERE 1=1").
		AndNotDeleted("t", false).
		And("t.project_id = $%d", "p1").
		And("t.status = $%d", "paid")

	b.Raw(" ORDER BY t.created_at LIMIT " + b.Arg(10))

	assert.Equal(t,
		"SELECT id FROM payment_items t WHERE 1=1 AND t.is_deleted = false AND t.project_id = $1 AND t.status = $2 ORDER BY t.created_at LIMIT $3",
		b.SQL())
	assert.Equal(t, []any{"p1", "paid", 10}, b.Args())
}

func TestBuilder_IncludeDeleted(t *testing.T) {
	b := database.NewBuilder("SELECT id FROM projects WHERE 1=1").AndNotDeleted("", true)

	assert.Equal(t, "SELECT id FROM projects WHERE 1=1", b.SQL())
	assert.Empty(t, b.Args())
}

func TestNotDeleted(t *testing.T) {
	assert.Equal(t, "is_deleted = false", database.NotDeleted(""))
	assert.Equal(t, "i.is_deleted = false", database.NotDeleted("i"))
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("inserting: %w", &pgconn.PgError{Code: "23505"})

	assert.True(t, database.IsUniqueViolation(wrapped))
	assert.False(t, database.IsForeignKeyViolation(wrapped))
	assert.True(t, database.IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, database.IsUniqueViolation(errors.New("boom")))
}

func TestMigrations_Ordered(t *testing.T) {
	migrations, err := database.Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.SQL)
	}

	assert.Equal(t, "init", migrations[0].Name)
}
