package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/notification"
)

type notificationResponse struct {
	ID        uuid.UUID         `json:"id"`
	ItemID    *uuid.UUID        `json:"itemId"`
	Kind      notification.Kind `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	DueDate   api.Date          `json:"dueDate"`
	IsRead    bool              `json:"isRead"`
	ReadAt    *time.Time        `json:"readAt"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		ItemID:    n.ItemID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		DueDate:   api.NewDate(n.DueDate),
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

type settingsResponse struct {
	Enabled        bool      `json:"enabled"`
	DaysBefore     int       `json:"daysBefore"`
	DueSoonEnabled bool      `json:"dueSoonEnabled"`
	OverdueEnabled bool      `json:"overdueEnabled"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toSettingsResponse(s *notification.Settings) settingsResponse {
	return settingsResponse{
		Enabled:        s.Enabled,
		DaysBefore:     s.DaysBefore,
		DueSoonEnabled: s.DueSoonEnabled,
		OverdueEnabled: s.OverdueEnabled,
		UpdatedAt:      s.UpdatedAt,
	}
}

type runResponse struct {
	MarkedOverdue int64  `json:"markedOverdue"`
	Scanned       int    `json:"scanned"`
	Created       int    `json:"created"`
	Outstanding   string `json:"outstandingAmount"`
}

func toRunResponse(r *notification.ReminderRun) runResponse {
	return runResponse{
		MarkedOverdue: r.MarkedOverdue,
		Scanned:       r.Scanned,
		Created:       r.Created,
		Outstanding:   money.Format(r.Outstanding),
	}
}
