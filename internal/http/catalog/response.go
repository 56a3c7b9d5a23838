package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/catalog"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

type projectResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsDeleted   bool       `json:"isDeleted"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toProjectResponse(p *catalog.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsDeleted:   p.IsDeleted,
		DeletedAt:   p.DeletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type categoryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parentId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toCategoryResponse(c *catalog.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type statsResponse struct {
	ProjectID   uuid.UUID `json:"projectId"`
	ItemCount   int       `json:"itemCount"`
	TotalAmount string    `json:"totalAmount"`
	PaidAmount  string    `json:"paidAmount"`
	Outstanding string    `json:"outstandingAmount"`
	Overdue     int       `json:"overdueCount"`
}

func toStatsResponse(s *catalog.ProjectStats) statsResponse {
	return statsResponse{
		ProjectID:   s.ProjectID,
		ItemCount:   s.ItemCount,
		TotalAmount: money.Format(s.TotalAmount),
		PaidAmount:  money.Format(s.PaidAmount),
		Outstanding: money.Format(s.Outstanding),
		Overdue:     s.Overdue,
	}
}
