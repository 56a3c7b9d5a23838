package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=notification
type Repository interface {
	List(ctx context.Context, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context) (int64, error)
	UnreadCount(ctx context.Context) (int, error)
	// Insert stores n unless a notification for the same item, kind and due
	// date exists, reporting whether a row was written.
	Insert(ctx context.Context, n *Notification) (bool, error)
	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, s *Settings) error
}

// Payments is the part of the payment service reminders are generated from.
type Payments interface {
	RefreshOverdue(ctx context.Context, now time.Time) (int64, error)
	DueItems(ctx context.Context, until time.Time) ([]*payment.Item, error)
}

type Service struct {
	repo     Repository
	payments Payments
}

func NewService(repo Repository, payments Payments) *Service {
	return &Service{repo: repo, payments: payments}
}

func (s *Service) List(ctx context.Context, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return s.repo.List(ctx, unreadOnly, min(limit, MaxLimit))
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotFound
	}

	return nil
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllRead(ctx)
}

func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	return s.repo.UnreadCount(ctx)
}

func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, settings Settings) (*Settings, error) {
	if settings.DaysBefore < 0 || settings.DaysBefore > MaxDaysBefore {
		return nil, apperr.Validation(apperr.FieldError{
			Field:   "daysBefore",
			Message: fmt.Sprintf("must be between 0 and %d", MaxDaysBefore),
		})
	}

	if err := s.repo.UpdateSettings(ctx, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// GenerateReminders marks overdue items, then records one reminder per unpaid
// item due within the configured window. Reminders already recorded for the
// same item, kind and due date are skipped, so repeated runs are harmless.
func (s *Service) GenerateReminders(ctx context.Context, now time.Time) (*ReminderRun, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	run := &ReminderRun{Outstanding: decimal.Zero}

	if !settings.Enabled {
		slog.DebugContext(ctx, "reminders disabled")
		return run, nil
	}

	run.MarkedOverdue, err = s.payments.RefreshOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("refresh overdue: %w", err)
	}

	today := civilDate(now)

	items, err := s.payments.DueItems(ctx, today.AddDate(0, 0, settings.DaysBefore))
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}

	run.Scanned = len(items)

	for _, item := range items {
		run.Outstanding = run.Outstanding.Add(item.Remaining())

		n := reminderFor(item, today, *settings)
		if n == nil {
			continue
		}

		created, err := s.repo.Insert(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("insert reminder for %s: %w", item.ID, err)
		}

		if created {
			run.Created++
		}
	}

	slog.InfoContext(ctx, "reminders generated",
		"scanned", run.Scanned,
		"created", run.Created,
		"marked_overdue", run.MarkedOverdue,
	)

	return run, nil
}
