package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/catalog"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const projectColumns = `id, name, description, is_deleted, deleted_at, created_at, updated_at`

func scanProject(s database.Scanner) (*catalog.Project, error) {
	var p catalog.Project

	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *catalog.Project) error {
	query := `
		INSERT INTO projects (name, description, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, p.Name, p.Description).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	return nil
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*catalog.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND ` + database.NotDeleted("")

	p, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrProjectNotFound
		}

		return nil, fmt.Errorf("getting project: %w", err)
	}

	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, includeDeleted bool) ([]*catalog.Project, error) {
	b := database.NewBuilder(`SELECT ` + projectColumns + ` FROM projects WHERE true`).
		AndNotDeleted("", includeDeleted).
		Raw(" ORDER BY created_at DESC")

	rows, err := s.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*catalog.Project

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}

		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	return projects, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *catalog.Project) error {
	query := `
		UPDATE projects
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 AND is_deleted = false
		RETURNING updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, p.Name, p.Description, p.ID).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.ErrProjectNotFound
		}

		return fmt.Errorf("updating project: %w", err)
	}

	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "projects", id)
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}

	return ok, nil
}

func (s *Store) RestoreProject(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.Restore(ctx, s.db, "projects", id)
	if err != nil {
		return false, fmt.Errorf("restoring project: %w", err)
	}

	return ok, nil
}

func (s *Store) ProjectStats(ctx context.Context, id uuid.UUID) (*catalog.ProjectStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(paid_amount), 0),
			COALESCE(SUM(GREATEST(total_amount - paid_amount, 0)), 0),
			COUNT(*) FILTER (WHERE status = 'overdue')
		FROM payment_items
		WHERE project_id = $1 AND is_deleted = false
	`

	stats := catalog.ProjectStats{ProjectID: id}

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&stats.ItemCount, &stats.TotalAmount, &stats.PaidAmount, &stats.Outstanding, &stats.Overdue,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating project stats: %w", err)
	}

	return &stats, nil
}

const categoryColumns = `id, name, parent_id, is_deleted, deleted_at, created_at, updated_at`

func scanCategory(s database.Scanner) (*catalog.Category, error) {
	var c catalog.Category

	if err := s.Scan(&c.ID, &c.Name, &c.ParentID, &c.IsDeleted, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *catalog.Category) error {
	query := `
		INSERT INTO categories (name, parent_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.Name, c.ParentID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND ` + database.NotDeleted("")

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrCategoryNotFound
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE ` + database.NotDeleted("") + ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*catalog.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	query := `
		UPDATE categories
		SET name = $1, parent_id = $2, updated_at = NOW()
		WHERE id = $3 AND is_deleted = false
		RETURNING updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.Name, c.ParentID, c.ID).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.ErrCategoryNotFound
		}

		return fmt.Errorf("updating category: %w", err)
	}

	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := database.MarkDeleted(ctx, s.db, "categories", id)
	if err != nil {
		return false, fmt.Errorf("deleting category: %w", err)
	}

	return ok, nil
}
