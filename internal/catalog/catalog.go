// Package catalog manages the projects and categories payment items are filed under.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

var (
	ErrProjectNotFound  = apperr.NotFound("project not found")
	ErrCategoryNotFound = apperr.NotFound("category not found")
	ErrInvalidParent    = apperr.Invalid("parent category must be another existing category")
)

type Project struct {
	ID          uuid.UUID
	Name        string
	Description string
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category groups payment items; categories may nest one level under a parent.
type Category struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectStats aggregates the live payment items of a project.
type ProjectStats struct {
	ProjectID   uuid.UUID
	ItemCount   int
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Outstanding decimal.Decimal
	Overdue     int
}
