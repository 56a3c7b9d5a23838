package budget

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/budget"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

type Handler struct {
	svc *budget.Service
}

func NewHandler(svc *budget.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.listPlans)
		r.Post("/", h.createPlan)
		r.Get("/{id}", h.getPlan)
		r.Put("/{id}", h.updatePlan)
		r.Delete("/{id}", h.deletePlan)
		r.Post("/{id}/items", h.addItem)
	})

	r.Route("/items", func(r chi.Router) {
		r.Put("/{id}", h.updateItem)
		r.Delete("/{id}", h.deleteItem)
		r.Post("/{id}/convert", h.convert)
	})
}

type planRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	PeriodStart api.Date `json:"periodStart" validate:"required"`
	PeriodEnd   api.Date `json:"periodEnd" validate:"required"`
	Notes       string   `json:"notes" validate:"max=2000"`
}

func (req planRequest) params() budget.PlanParams {
	return budget.PlanParams{
		Name:        req.Name,
		PeriodStart: req.PeriodStart.Time,
		PeriodEnd:   req.PeriodEnd.Time,
		Notes:       req.Notes,
	}
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]planResponse, len(plans))
	for i, p := range plans {
		resp[i] = toPlanResponse(p)
	}

	api.OK(w, resp)
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	p, err := h.svc.CreatePlan(r.Context(), req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toPlanResponse(p))
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	detail, err := h.svc.PlanDetail(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toDetailResponse(detail))
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req planRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	p, err := h.svc.UpdatePlan(r.Context(), id, req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toPlanResponse(p))
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.DeletePlan(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

type itemRequest struct {
	ItemName      string          `json:"itemName" validate:"required,max=200"`
	PlannedAmount decimal.Decimal `json:"plannedAmount" validate:"gt=0"`
	CategoryID    *uuid.UUID      `json:"categoryId"`
	DueDate       *api.Date       `json:"dueDate"`
	Notes         string          `json:"notes" validate:"max=2000"`
}

func (req itemRequest) params() budget.ItemParams {
	return budget.ItemParams{
		ItemName:      req.ItemName,
		PlannedAmount: req.PlannedAmount,
		CategoryID:    req.CategoryID,
		DueDate:       req.DueDate.TimePtr(),
		Notes:         req.Notes,
	}
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	planID, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req itemRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	it, err := h.svc.AddItem(r.Context(), planID, req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toItemResponse(it))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req itemRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	it, err := h.svc.UpdateItem(r.Context(), id, req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(it))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

type convertRequest struct {
	ProjectID   uuid.UUID           `json:"projectId" validate:"required"`
	PaymentType payment.PaymentType `json:"paymentType" validate:"omitempty,oneof=monthly installment single"`
	StartDate   *api.Date           `json:"startDate"`
	EndDate     *api.Date           `json:"endDate"`
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req convertRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	it, pi, err := h.svc.ConvertToPayment(r.Context(), id, budget.ConvertParams{
		ProjectID:   req.ProjectID,
		PaymentType: req.PaymentType,
		StartDate:   req.StartDate.TimePtr(),
		EndDate:     req.EndDate.TimePtr(),
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toConvertResponse(it, pi))
}
