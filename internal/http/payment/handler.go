package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/importer"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
	"github.com/MrJamesThe3rd/caiwu/internal/upload"
)

// maxImportSize bounds uploaded CSV files.
const maxImportSize = 10 << 20

// Receipts stores receipt files attached to payments.
type Receipts interface {
	Save(ctx context.Context, r io.Reader) (*upload.File, error)
	Remove(url string) error
}

type Handler struct {
	svc          *payment.Service
	importSvc    *importer.Service
	receipts     Receipts
	maxReceiptSz int64
}

func NewHandler(svc *payment.Service, importSvc *importer.Service, receipts Receipts, maxReceiptSize int64) *Handler {
	return &Handler{svc: svc, importSvc: importSvc, receipts: receipts, maxReceiptSz: maxReceiptSize}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Patch("/", h.patch)
			r.Delete("/", h.delete)
			r.Post("/restore", h.restore)
			r.Delete("/permanent", h.deletePermanent)
			r.Post("/reconcile", h.reconcile)
			r.Get("/audit-logs", h.auditLogs)
			r.Get("/payments", h.listPayments)
			r.Post("/payments", h.addPayment)
			r.Delete("/payments/{recordID}", h.deletePayment)
		})
	})

	r.Post("/import", h.importCSV)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := api.NewQuery(r)

	filter := payment.ListFilter{
		StoreFilter: payment.StoreFilter{
			ProjectID:      q.UUID("projectId"),
			CategoryID:     q.UUID("categoryId"),
			IncludeDeleted: q.Bool("includeAll"),
		},
		Criteria: payment.Criteria{
			Search: q.String("search"),
			From:   q.Date("startDate"),
			To:     q.Date("endDate"),
		},
		SortKey:   payment.SortKey(q.String("sortBy")),
		Direction: payment.Direction(q.String("sortOrder")),
		Page:      q.Int("page", 1),
		PageSize:  q.Int("limit", payment.DefaultPageSize),
	}

	var fields []apperr.FieldError

	if s := q.String("itemType"); s != "" {
		t := payment.PaymentType(s)
		if !t.Valid() {
			fields = append(fields, apperr.FieldError{Field: "itemType", Message: "must be one of monthly, installment, single"})
		}

		filter.PaymentType = &t
	}

	if s := q.String("status"); s != "" {
		st := payment.Status(s)
		if !st.Valid() {
			fields = append(fields, apperr.FieldError{Field: "status", Message: "must be one of pending, partial, paid, overdue"})
		}

		filter.Criteria.Status = &st
	}

	if filter.SortKey == "" {
		filter.SortKey = payment.SortByCreatedAt
	} else if !filter.SortKey.Valid() {
		fields = append(fields, apperr.FieldError{Field: "sortBy", Message: "is not a sortable field"})
	}

	switch filter.Direction {
	case "":
		filter.Direction = payment.Desc
	case payment.Asc, payment.Desc:
	default:
		fields = append(fields, apperr.FieldError{Field: "sortOrder", Message: "must be asc or desc"})
	}

	if err := q.Err(); err != nil {
		api.Error(w, r, err)
		return
	}

	if len(fields) > 0 {
		api.Error(w, r, apperr.Validation(fields...))
		return
	}

	res, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, listResponse{
		Items: toItemResponseList(res.Items),
		Pagination: paginationResponse{
			Page:       res.Page.Page,
			Limit:      res.Page.PageSize,
			TotalPages: res.Page.TotalPages,
			TotalItems: res.Page.TotalItems,
		},
	})
}

type createItemRequest struct {
	ItemName    string              `json:"itemName" validate:"required,max=200"`
	TotalAmount decimal.Decimal     `json:"totalAmount" validate:"gt=0"`
	PaymentType payment.PaymentType `json:"paymentType" validate:"required,oneof=monthly installment single"`
	StartDate   api.Date            `json:"startDate" validate:"required"`
	EndDate     *api.Date           `json:"endDate"`
	ProjectID   uuid.UUID           `json:"projectId" validate:"required"`
	CategoryID  *uuid.UUID          `json:"categoryId"`
	Source      payment.Source      `json:"source" validate:"omitempty,oneof=manual ai_scan"`
	Notes       string              `json:"notes" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	item, err := h.svc.Create(r.Context(), payment.CreateParams{
		ItemName:    req.ItemName,
		TotalAmount: req.TotalAmount,
		PaymentType: req.PaymentType,
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.TimePtr(),
		ProjectID:   req.ProjectID,
		CategoryID:  req.CategoryID,
		Source:      req.Source,
		Notes:       req.Notes,
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toItemResponse(item))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(item))
}

type updateItemRequest struct {
	ItemName    string              `json:"itemName" validate:"required,max=200"`
	TotalAmount decimal.Decimal     `json:"totalAmount" validate:"gt=0"`
	PaymentType payment.PaymentType `json:"paymentType" validate:"required,oneof=monthly installment single"`
	StartDate   api.Date            `json:"startDate" validate:"required"`
	EndDate     *api.Date           `json:"endDate"`
	ProjectID   uuid.UUID           `json:"projectId" validate:"required"`
	CategoryID  *uuid.UUID          `json:"categoryId"`
	Notes       string              `json:"notes" validate:"max=2000"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req updateItemRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	item, err := h.svc.Update(r.Context(), id, payment.UpdateParams{
		ItemName:    req.ItemName,
		TotalAmount: req.TotalAmount,
		PaymentType: req.PaymentType,
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.TimePtr(),
		ProjectID:   req.ProjectID,
		CategoryID:  req.CategoryID,
		Notes:       req.Notes,
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(item))
}

// patchItemRequest fields are optional; endDate and categoryId may be sent as
// null to clear them.
type patchItemRequest struct {
	ItemName    *string                 `json:"itemName" validate:"omitempty,max=200"`
	TotalAmount *decimal.Decimal        `json:"totalAmount" validate:"omitempty,gt=0"`
	PaymentType *payment.PaymentType    `json:"paymentType" validate:"omitempty,oneof=monthly installment single"`
	StartDate   *api.Date               `json:"startDate"`
	EndDate     api.Nullable[api.Date]  `json:"endDate"`
	ProjectID   *uuid.UUID              `json:"projectId"`
	CategoryID  api.Nullable[uuid.UUID] `json:"categoryId"`
	Notes       *string                 `json:"notes" validate:"omitempty,max=2000"`
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req patchItemRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	params := payment.PatchParams{
		ItemName:        req.ItemName,
		TotalAmount:     req.TotalAmount,
		PaymentType:     req.PaymentType,
		StartDate:       req.StartDate.TimePtr(),
		ClearEndDate:    req.EndDate.Cleared(),
		ProjectID:       req.ProjectID,
		CategoryID:      req.CategoryID.Value,
		ClearCategoryID: req.CategoryID.Cleared(),
		Notes:           req.Notes,
	}

	if req.EndDate.Value != nil {
		params.EndDate = req.EndDate.Value.TimePtr()
	}

	item, err := h.svc.Patch(r.Context(), id, params)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(item))
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

	item, err := h.svc.Restore(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(item))
}

func (h *Handler) deletePermanent(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	receipts, err := h.svc.DeletePermanent(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	for _, url := range receipts {
		if err := h.receipts.Remove(url); err != nil {
			slog.ErrorContext(r.Context(), "failed to remove receipt", "url", url, "error", err)
		}
	}

	api.NoContent(w)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	item, err := h.svc.Reconcile(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(item))
}

func (h *Handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	logs, err := h.svc.AuditLogs(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]auditLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = auditLogResponse{ID: l.ID, Action: l.Action, Changes: l.Changes, CreatedAt: l.CreatedAt}
	}

	api.OK(w, resp)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	records, err := h.svc.ListPayments(r.Context(), id)
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

type addPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate     *api.Date       `json:"paymentDate"`
	PaymentMethod   string          `json:"paymentMethod" validate:"max=50"`
	ReceiptImageURL string          `json:"receiptImageUrl" validate:"max=500"`
	Notes           string          `json:"notes" validate:"max=2000"`
}

// addPayment accepts JSON, or a multipart form with the same fields and an
// optional "receipt" file.
func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var (
		req      addPaymentRequest
		uploaded *upload.File
	)

	if isMultipart(r) {
		req, uploaded, err = h.readPaymentForm(w, r)
	} else {
		err = api.Decode(w, r, &req)
	}

	if err != nil {
		api.Error(w, r, err)
		return
	}

	if uploaded != nil {
		req.ReceiptImageURL = uploaded.URL
	}

	params := payment.PaymentParams{
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReceiptImageURL: req.ReceiptImageURL,
		Notes:           req.Notes,
	}

	if req.PaymentDate != nil {
		params.PaymentDate = req.PaymentDate.Time
	}

	item, rec, err := h.svc.AddPayment(r.Context(), id, params)
	if err != nil {
		if uploaded != nil {
			if rmErr := h.receipts.Remove(uploaded.URL); rmErr != nil {
				slog.ErrorContext(r.Context(), "failed to remove orphaned receipt", "file", uploaded.Name, "error", rmErr)
			}
		}

		api.Error(w, r, err)

		return
	}

	api.Created(w, paymentResponse{Item: toItemResponse(item), Payment: toRecordResponse(rec)})
}

func (h *Handler) readPaymentForm(w http.ResponseWriter, r *http.Request) (addPaymentRequest, *upload.File, error) {
	var req addPaymentRequest

	r.Body = http.MaxBytesReader(w, r.Body, h.maxReceiptSz+api.MaxBodySize)

	if err := r.ParseMultipartForm(api.MaxBodySize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, nil, upload.ErrTooLarge
		}

		return req, nil, apperr.Invalid("failed to parse form: " + err.Error())
	}

	amount, err := money.Parse(r.FormValue("amount"))
	if err != nil {
		return req, nil, apperr.Validation(apperr.FieldError{Field: "amount", Message: err.Error()})
	}

	req.Amount = amount
	req.PaymentMethod = r.FormValue("paymentMethod")
	req.Notes = r.FormValue("notes")

	if s := r.FormValue("paymentDate"); s != "" {
		d, err := api.ParseDate(s)
		if err != nil {
			return req, nil, apperr.Validation(apperr.FieldError{Field: "paymentDate", Message: err.Error()})
		}

		req.PaymentDate = &d
	}

	if err := api.Validate(&req); err != nil {
		return req, nil, err
	}

	file, _, err := r.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}

	if err != nil {
		return req, nil, apperr.Invalid("failed to read receipt: " + err.Error())
	}
	defer file.Close()

	uploaded, err := h.receipts.Save(r.Context(), file)
	if err != nil {
		return req, nil, err
	}

	return req, uploaded, nil
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	recordID, err := api.ParseID(r, "recordID")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	item, err := h.svc.DeletePayment(r.Context(), id, recordID)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toItemResponse(item))
}

// importCSV takes a multipart form with a "file" and the "projectId" (and
// optional "categoryId") every imported item is filed under.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize+api.MaxBodySize)

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		api.Error(w, r, apperr.Invalid("failed to parse form: "+err.Error()))
		return
	}

	var opts importer.Options

	projectID, err := uuid.Parse(r.FormValue("projectId"))
	if err != nil {
		api.Error(w, r, apperr.Validation(apperr.FieldError{Field: "projectId", Message: "must be a UUID"}))
		return
	}

	opts.ProjectID = projectID

	if s := r.FormValue("categoryId"); s != "" {
		categoryID, err := uuid.Parse(s)
		if err != nil {
			api.Error(w, r, apperr.Validation(apperr.FieldError{Field: "categoryId", Message: "must be a UUID"}))
			return
		}

		opts.CategoryID = &categoryID
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		api.Error(w, r, apperr.Validation(apperr.FieldError{Field: "file", Message: "is required"}))
		return
	}
	defer file.Close()

	report, err := h.importSvc.Import(r.Context(), file, opts)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if len(report.Created) > 0 {
		status = http.StatusCreated
	}

	api.JSON(w, status, toImportResponse(report))
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}
