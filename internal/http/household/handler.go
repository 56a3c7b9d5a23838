package household

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/household"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
)

type Handler struct {
	svc *household.Service
	now func() time.Time
}

func NewHandler(svc *household.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})

	r.Get("/budgets", h.listBudgets)
	r.Put("/budgets", h.setBudget)

	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.listExpenses)
		r.Post("/", h.addExpense)
		r.Put("/{id}", h.updateExpense)
		r.Delete("/{id}", h.deleteExpense)
	})

	r.Get("/summary", h.summary)
}

// month reads the "month" query parameter, defaulting to the current month.
func (h *Handler) month(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		return household.MonthOf(h.now()), nil
	}

	return household.ParseMonth(s)
}

type categoryRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	Icon      string `json:"icon" validate:"max=50"`
	SortOrder int    `json:"sortOrder" validate:"gte=0"`
}

func (req categoryRequest) params() household.CategoryParams {
	return household.CategoryParams{Name: req.Name, Icon: req.Icon, SortOrder: req.SortOrder}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}

	api.OK(w, resp)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	c, err := h.svc.CreateCategory(r.Context(), req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toCategoryResponse(c))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req categoryRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	c, err := h.svc.UpdateCategory(r.Context(), id, req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toCategoryResponse(c))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

func (h *Handler) listBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := h.month(r)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	budgets, err := h.svc.Budgets(r.Context(), month)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		resp[i] = toBudgetResponse(b)
	}

	api.OK(w, resp)
}

type budgetRequest struct {
	CategoryID uuid.UUID       `json:"categoryId" validate:"required"`
	Month      string          `json:"month" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gte=0"`
}

func (h *Handler) setBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	month, err := household.ParseMonth(req.Month)
	if err != nil {
		api.Error(w, r, apperr.Validation(apperr.FieldError{Field: "month", Message: "must be formatted as YYYY-MM"}))
		return
	}

	b, err := h.svc.SetBudget(r.Context(), req.CategoryID, month, req.Amount)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toBudgetResponse(b))
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	q := api.NewQuery(r)

	filter := household.ExpenseFilter{
		From:       q.Date("from"),
		To:         q.Date("to"),
		CategoryID: q.UUID("categoryId"),
	}

	if err := q.Err(); err != nil {
		api.Error(w, r, err)
		return
	}

	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = toExpenseResponse(e)
	}

	api.OK(w, resp)
}

type expenseRequest struct {
	CategoryID    uuid.UUID       `json:"categoryId" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	ExpenseDate   api.Date        `json:"expenseDate" validate:"required"`
	Description   string          `json:"description" validate:"max=500"`
	PaymentMethod string          `json:"paymentMethod" validate:"max=50"`
}

func (req expenseRequest) params() household.ExpenseParams {
	return household.ExpenseParams{
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		ExpenseDate:   req.ExpenseDate.Time,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
	}
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	e, err := h.svc.AddExpense(r.Context(), req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toExpenseResponse(e))
}

func (h *Handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req expenseRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	e, err := h.svc.UpdateExpense(r.Context(), id, req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toExpenseResponse(e))
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	month, err := h.month(r)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	sum, err := h.svc.MonthSummary(r.Context(), month)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toSummaryResponse(sum))
}
