package loan

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/amortization"
	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/loan"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

type Handler struct {
	svc *loan.Service
}

func NewHandler(svc *loan.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/restore", h.restore)
	r.Post("/{id}/payments", h.recordPayment)
	r.Get("/{id}/schedule", h.schedule)
}

type recordRequest struct {
	RecordType           loan.RecordType  `json:"recordType" validate:"required,oneof=loan investment"`
	Name                 string           `json:"name" validate:"required,max=200"`
	Counterparty         string           `json:"counterparty" validate:"max=200"`
	PrincipalAmount      decimal.Decimal  `json:"principalAmount" validate:"gt=0"`
	AnnualInterestRate   decimal.Decimal  `json:"annualInterestRate" validate:"gte=0,lte=100"`
	MonthlyPaymentAmount *decimal.Decimal `json:"monthlyPaymentAmount" validate:"omitempty,gt=0"`
	Status               loan.Status      `json:"status" validate:"omitempty,oneof=active completed"`
	StartDate            api.Date         `json:"startDate" validate:"required"`
	Notes                string           `json:"notes" validate:"max=2000"`
}

func (req recordRequest) params() loan.Params {
	return loan.Params{
		RecordType:           req.RecordType,
		Name:                 req.Name,
		Counterparty:         req.Counterparty,
		PrincipalAmount:      req.PrincipalAmount,
		AnnualInterestRate:   req.AnnualInterestRate,
		MonthlyPaymentAmount: req.MonthlyPaymentAmount,
		StartDate:            req.StartDate.Time,
		Notes:                req.Notes,
		Status:               req.Status,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := api.NewQuery(r)

	filter := loan.ListFilter{IncludeDeleted: q.Bool("includeAll")}

	var fields []apperr.FieldError

	if s := q.String("recordType"); s != "" {
		t := loan.RecordType(s)
		if !t.Valid() {
			fields = append(fields, apperr.FieldError{Field: "recordType", Message: "must be loan or investment"})
		}

		filter.RecordType = &t
	}

	if s := q.String("status"); s != "" {
		st := loan.Status(s)
		if !st.Valid() {
			fields = append(fields, apperr.FieldError{Field: "status", Message: "must be active or completed"})
		}

		filter.Status = &st
	}

	if err := q.Err(); err != nil {
		api.Error(w, r, err)
		return
	}

	if len(fields) > 0 {
		api.Error(w, r, apperr.Validation(fields...))
		return
	}

	records, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]recordResponse, len(records))
	for i, rec := range records {
		resp[i] = toRecordResponse(rec)
	}

	api.OK(w, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	rec, err := h.svc.Create(r.Context(), req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toRecordResponse(rec))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toRecordResponse(rec))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req recordRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	rec, err := h.svc.Update(r.Context(), id, req.params())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toRecordResponse(rec))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	rec, err := h.svc.Restore(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toRecordResponse(rec))
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req paymentRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	rec, err := h.svc.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toRecordResponse(rec))
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	q := api.NewQuery(r)
	periods := q.Int("periods", amortization.PreviewPeriods)

	if err := q.Err(); err != nil {
		api.Error(w, r, err)
		return
	}

	if periods < 1 || periods > amortization.MaxPeriods {
		api.Error(w, r, apperr.Validation(apperr.FieldError{Field: "periods", Message: "must be between 1 and 360"}))
		return
	}

	proj, err := h.svc.Schedule(r.Context(), id, periods)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toScheduleResponse(proj))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sums, err := h.svc.Summary(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]summaryResponse, len(sums))
	for i, s := range sums {
		resp[i] = summaryResponse{
			RecordType:  s.RecordType,
			Count:       s.Count,
			ActiveCount: s.ActiveCount,
			Principal:   money.Format(s.Principal),
			Paid:        money.Format(s.Paid),
			Outstanding: money.Format(s.Outstanding),
		}
	}

	api.OK(w, resp)
}
