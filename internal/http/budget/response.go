package budget

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/budget"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

type planResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PeriodStart api.Date  `json:"periodStart"`
	PeriodEnd   api.Date  `json:"periodEnd"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toPlanResponse(p *budget.Plan) planResponse {
	return planResponse{
		ID:          p.ID,
		Name:        p.Name,
		PeriodStart: api.NewDate(p.PeriodStart),
		PeriodEnd:   api.NewDate(p.PeriodEnd),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type itemResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PlanID             uuid.UUID  `json:"planId"`
	ItemName           string     `json:"itemName"`
	PlannedAmount      string     `json:"plannedAmount"`
	CategoryID         *uuid.UUID `json:"categoryId"`
	DueDate            *api.Date  `json:"dueDate"`
	ConvertedToPayment bool       `json:"convertedToPayment"`
	PaymentItemID      *uuid.UUID `json:"paymentItemId"`
	Notes              string     `json:"notes"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func toItemResponse(it *budget.Item) itemResponse {
	return itemResponse{
		ID:                 it.ID,
		PlanID:             it.PlanID,
		ItemName:           it.ItemName,
		PlannedAmount:      money.Format(it.PlannedAmount),
		CategoryID:         it.CategoryID,
		DueDate:            api.DatePtr(it.DueDate),
		ConvertedToPayment: it.ConvertedToPayment,
		PaymentItemID:      it.PaymentItemID,
		Notes:              it.Notes,
		CreatedAt:          it.CreatedAt,
		UpdatedAt:          it.UpdatedAt,
	}
}

type detailResponse struct {
	planResponse
	Items          []itemResponse `json:"items"`
	PlannedTotal   string         `json:"plannedTotal"`
	ConvertedTotal string         `json:"convertedTotal"`
}

func toDetailResponse(d *budget.PlanDetail) detailResponse {
	items := make([]itemResponse, len(d.Items))
	for i, it := range d.Items {
		items[i] = toItemResponse(it)
	}

	return detailResponse{
		planResponse:   toPlanResponse(d.Plan),
		Items:          items,
		PlannedTotal:   money.Format(d.PlannedTotal),
		ConvertedTotal: money.Format(d.ConvertedTotal),
	}
}

type paymentItemResponse struct {
	ID          uuid.UUID           `json:"id"`
	ItemName    string              `json:"itemName"`
	TotalAmount string              `json:"totalAmount"`
	PaymentType payment.PaymentType `json:"paymentType"`
	Status      payment.Status      `json:"status"`
	StartDate   api.Date            `json:"startDate"`
	EndDate     *api.Date           `json:"endDate"`
	ProjectID   uuid.UUID           `json:"projectId"`
}

type convertResponse struct {
	BudgetItem  itemResponse        `json:"budgetItem"`
	PaymentItem paymentItemResponse `json:"paymentItem"`
}

func toConvertResponse(it *budget.Item, pi *payment.Item) convertResponse {
	return convertResponse{
		BudgetItem: toItemResponse(it),
		PaymentItem: paymentItemResponse{
			ID:          pi.ID,
			ItemName:    pi.ItemName,
			TotalAmount: money.Format(pi.TotalAmount),
			PaymentType: pi.PaymentType,
			Status:      pi.Status,
			StartDate:   api.NewDate(pi.StartDate),
			EndDate:     api.DatePtr(pi.EndDate),
			ProjectID:   pi.ProjectID,
		},
	}
}
