package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

// Status is derived from the paid amount and the due date; it is never set by clients.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusOverdue:
		return true
	}

	return false
}

// PaymentType describes how an item is expected to be settled.
type PaymentType string

const (
	TypeMonthly     PaymentType = "monthly"
	TypeInstallment PaymentType = "installment"
	TypeSingle      PaymentType = "single"
)

func (t PaymentType) Valid() bool {
	switch t {
	case TypeMonthly, TypeInstallment, TypeSingle:
		return true
	}

	return false
}

// Source records how an item entered the system.
type Source string

const (
	SourceManual Source = "manual"
	SourceAIScan Source = "ai_scan"
)

func (s Source) Valid() bool {
	return s == SourceManual || s == SourceAIScan
}

var (
	ErrNotFound         = apperr.NotFound("payment item not found")
	ErrRecordNotFound   = apperr.NotFound("payment record not found")
	ErrInvalidAmount    = apperr.Invalid("payment amount must be greater than zero")
	ErrExceedsRemaining = apperr.Invalid("payment amount exceeds remaining balance")
	ErrTotalBelowPaid   = apperr.Invalid("total amount cannot be less than the amount already paid")
)

// Item is a planned obligation to pay TotalAmount, settled by Records.
type Item struct {
	ID          uuid.UUID
	ItemName    string
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      Status
	PaymentType PaymentType
	StartDate   time.Time
	EndDate     *time.Time
	ProjectID   uuid.UUID
	CategoryID  *uuid.UUID
	Source      Source
	Notes       string
	database.SoftDelete
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DueDate is the end date when set, otherwise the start date.
func (i *Item) DueDate() time.Time {
	if i.EndDate != nil {
		return *i.EndDate
	}

	return i.StartDate
}

// Remaining is the amount still owed, never negative.
func (i *Item) Remaining() decimal.Decimal {
	r := i.TotalAmount.Sub(i.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}

	return r
}

// Record is a single payment applied to an Item.
type Record struct {
	ID              uuid.UUID
	ItemID          uuid.UUID
	AmountPaid      decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   string
	ReceiptImageURL string
	Notes           string
	database.SoftDelete
	CreatedAt time.Time
}

// AuditAction names the mutation recorded by an AuditLog.
type AuditAction string

const (
	ActionCreate         AuditAction = "create"
	ActionUpdate         AuditAction = "update"
	ActionDelete         AuditAction = "delete"
	ActionRestore        AuditAction = "restore"
	ActionPaymentAdded   AuditAction = "payment_added"
	ActionPaymentDeleted AuditAction = "payment_deleted"
)

// Change is one field-level difference inside an AuditLog.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

type AuditLog struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	Action    AuditAction
	Changes   []Change
	CreatedAt time.Time
}
