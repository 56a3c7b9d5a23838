package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/importer"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

type itemResponse struct {
	ID          uuid.UUID           `json:"id"`
	ItemName    string              `json:"itemName"`
	TotalAmount string              `json:"totalAmount"`
	PaidAmount  string              `json:"paidAmount"`
	Remaining   string              `json:"remainingAmount"`
	Status      payment.Status      `json:"status"`
	PaymentType payment.PaymentType `json:"paymentType"`
	StartDate   api.Date            `json:"startDate"`
	EndDate     *api.Date           `json:"endDate"`
	ProjectID   uuid.UUID           `json:"projectId"`
	CategoryID  *uuid.UUID          `json:"categoryId"`
	Source      payment.Source      `json:"source"`
	Notes       string              `json:"notes"`
	IsDeleted   bool                `json:"isDeleted"`
	DeletedAt   *time.Time          `json:"deletedAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func toItemResponse(it *payment.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		ItemName:    it.ItemName,
		TotalAmount: money.Format(it.TotalAmount),
		PaidAmount:  money.Format(it.PaidAmount),
		Remaining:   money.Format(it.Remaining()),
		Status:      it.Status,
		PaymentType: it.PaymentType,
		StartDate:   api.NewDate(it.StartDate),
		EndDate:     api.DatePtr(it.EndDate),
		ProjectID:   it.ProjectID,
		CategoryID:  it.CategoryID,
		Source:      it.Source,
		Notes:       it.Notes,
		IsDeleted:   it.IsDeleted,
		DeletedAt:   it.DeletedAt,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func toItemResponseList(items []*payment.Item) []itemResponse {
	resp := make([]itemResponse, len(items))
	for i, it := range items {
		resp[i] = toItemResponse(it)
	}

	return resp
}

type paginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

type listResponse struct {
	Items      []itemResponse     `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type recordResponse struct {
	ID              uuid.UUID `json:"id"`
	ItemID          uuid.UUID `json:"itemId"`
	AmountPaid      string    `json:"amountPaid"`
	PaymentDate     api.Date  `json:"paymentDate"`
	PaymentMethod   string    `json:"paymentMethod"`
	ReceiptImageURL string    `json:"receiptImageUrl,omitempty"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toRecordResponse(rec *payment.Record) recordResponse {
	return recordResponse{
		ID:              rec.ID,
		ItemID:          rec.ItemID,
		AmountPaid:      money.Format(rec.AmountPaid),
		PaymentDate:     api.NewDate(rec.PaymentDate),
		PaymentMethod:   rec.PaymentMethod,
		ReceiptImageURL: rec.ReceiptImageURL,
		Notes:           rec.Notes,
		CreatedAt:       rec.CreatedAt,
	}
}

type paymentResponse struct {
	Item    itemResponse   `json:"item"`
	Payment recordResponse `json:"payment"`
}

type auditLogResponse struct {
	ID        uuid.UUID           `json:"id"`
	Action    payment.AuditAction `json:"action"`
	Changes   []payment.Change    `json:"changes"`
	CreatedAt time.Time           `json:"createdAt"`
}

type importResponse struct {
	Profile  string              `json:"profile"`
	Encoding string              `json:"encoding"`
	Total    int                 `json:"total"`
	Created  int                 `json:"created"`
	Items    []itemResponse      `json:"items"`
	Errors   []importer.RowError `json:"errors"`
}

func toImportResponse(r *importer.Report) importResponse {
	errs := r.Errors
	if errs == nil {
		errs = []importer.RowError{}
	}

	return importResponse{
		Profile:  r.Profile,
		Encoding: r.Encoding,
		Total:    r.Total,
		Created:  len(r.Created),
		Items:    toItemResponseList(r.Created),
		Errors:   errs,
	}
}
