package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/notification"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanNotification(s database.Scanner) (*notification.Notification, error) {
	var (
		n      notification.Notification
		itemID uuid.NullUUID
		readAt sql.NullTime
	)

	if err := s.Scan(&n.ID, &itemID, &n.Kind, &n.Title, &n.Message, &n.DueDate, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
		return nil, err
	}

	if itemID.Valid {
		n.ItemID = &itemID.UUID
	}

	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}

	return &n, nil
}

func (s *Store) List(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	b := database.NewBuilder(`
		SELECT id, item_id, kind, title, message, due_date, is_read, read_at, created_at
		FROM notifications
		WHERE true`)

	if unreadOnly {
		b.Raw(" AND is_read = false")
	}

	b.Raw(" ORDER BY created_at DESC LIMIT " + b.Arg(limit))

	rows, err := s.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}

	return notifications, nil
}

func (s *Store) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE notifications SET is_read = true, read_at = COALESCE(read_at, NOW()) WHERE id = $1`

	ok, err := database.ExecAffected(ctx, s.db, query, id)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}

	return ok, nil
}

func (s *Store) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = true, read_at = NOW() WHERE is_read = false`)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return n, nil
}

func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	var n int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = false`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}

	return n, nil
}

func (s *Store) Insert(ctx context.Context, n *notification.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (item_id, kind, title, message, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5::date, NOW())
		ON CONFLICT (item_id, kind, due_date) DO NOTHING
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, n.ItemID, n.Kind, n.Title, n.Message, n.DueDate.Format(time.DateOnly)).
		Scan(&n.ID, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("inserting notification: %w", err)
	}

	return true, nil
}

func (s *Store) GetSettings(ctx context.Context) (*notification.Settings, error) {
	var st notification.Settings

	query := `
		SELECT enabled, days_before, due_soon_enabled, overdue_enabled, updated_at
		FROM notification_settings
		WHERE id = 1
	`

	if err := s.db.QueryRowContext(ctx, query).
		Scan(&st.Enabled, &st.DaysBefore, &st.DueSoonEnabled, &st.OverdueEnabled, &st.UpdatedAt); err != nil {
		return nil, fmt.Errorf("getting notification settings: %w", err)
	}

	return &st, nil
}

func (s *Store) UpdateSettings(ctx context.Context, st *notification.Settings) error {
	query := `
		INSERT INTO notification_settings (id, enabled, days_before, due_soon_enabled, overdue_enabled, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
			days_before = EXCLUDED.days_before,
			due_soon_enabled = EXCLUDED.due_soon_enabled,
			overdue_enabled = EXCLUDED.overdue_enabled,
			updated_at = NOW()
		RETURNING updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, st.Enabled, st.DaysBefore, st.DueSoonEnabled, st.OverdueEnabled).
		Scan(&st.UpdatedAt); err != nil {
		return fmt.Errorf("updating notification settings: %w", err)
	}

	return nil
}
