// Package notification turns due and overdue payment items into in-app reminders.
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

type Kind string

const (
	KindDueSoon Kind = "due_soon"
	KindOverdue Kind = "overdue"
)

var ErrNotFound = apperr.NotFound("notification not found")

const (
	DefaultLimit  = 50
	MaxLimit      = 200
	MaxDaysBefore = 60
)

type Notification struct {
	ID        uuid.UUID
	ItemID    *uuid.UUID
	Kind      Kind
	Title     string
	Message   string
	DueDate   time.Time
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

type Settings struct {
	Enabled        bool
	DaysBefore     int
	DueSoonEnabled bool
	OverdueEnabled bool
	UpdatedAt      time.Time
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// reminderFor builds the reminder for item as seen on today, or nil when the
// item's kind of reminder is switched off.
func reminderFor(item *payment.Item, today time.Time, s Settings) *Notification {
	due := civilDate(item.DueDate())
	days := int(due.Sub(today).Hours() / 24)
	remaining := "¥" + money.Format(item.Remaining())
	date := due.Format(time.DateOnly)

	n := &Notification{ItemID: &item.ID, DueDate: due}

	switch {
	case days < 0:
		if !s.OverdueEnabled {
			return nil
		}

		n.Kind = KindOverdue
		n.Title = "逾期提醒：" + item.ItemName
		n.Message = fmt.Sprintf("「%s」已于 %s 到期，已逾期 %d 天，尚有 %s 未付。", item.ItemName, date, -days, remaining)
	case days == 0:
		if !s.DueSoonEnabled {
			return nil
		}

		n.Kind = KindDueSoon
		n.Title = "付款提醒：" + item.ItemName
		n.Message = fmt.Sprintf("「%s」今天（%s）到期，尚有 %s 未付。", item.ItemName, date, remaining)
	default:
		if !s.DueSoonEnabled {
			return nil
		}

		n.Kind = KindDueSoon
		n.Title = "付款提醒：" + item.ItemName
		n.Message = fmt.Sprintf("「%s」将于 %s 到期（还有 %d 天），尚有 %s 未付。", item.ItemName, date, days, remaining)
	}

	return n
}

// ReminderRun reports what one reminder pass did.
type ReminderRun struct {
	MarkedOverdue int64
	Scanned       int
	Created       int
	Outstanding   decimal.Decimal
}
