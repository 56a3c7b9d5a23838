package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	paymenthttp "github.com/MrJamesThe3rd/caiwu/internal/http/payment"
	"github.com/MrJamesThe3rd/caiwu/internal/importer"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
	"github.com/MrJamesThe3rd/caiwu/internal/upload"
)

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	repo      *payment.MockRepository
	router    http.Handler
	uploadDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := payment.NewMockRepository(ctrl)

	svc := payment.NewService(repo, payment.WithClock(func() time.Time { return fixedNow }))

	dir := t.TempDir()
	receipts, err := upload.NewStore(dir, "/uploads", 1<<20)
	require.NoError(t, err)

	h := paymenthttp.NewHandler(svc, importer.NewService(svc), receipts, 1<<20)

	r := chi.NewRouter()
	r.Route("/payment", h.Routes)

	return &fixture{repo: repo, router: r, uploadDir: dir}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func sampleItem(total, paid string) *payment.Item {
	return &payment.Item{
		ID:          uuid.New(),
		ItemName:    "装修尾款",
		TotalAmount: decimal.RequireFromString(total),
		PaidAmount:  decimal.RequireFromString(paid),
		Status:      payment.StatusPending,
		PaymentType: payment.TypeSingle,
		StartDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		ProjectID:   uuid.New(),
		Source:      payment.SourceManual,
	}
}

func TestHandler_Create(t *testing.T) {
	projectID := uuid.New()

	type testCase struct {
		name       string
		body       string
		setupMock  func(m *payment.MockRepository)
		wantStatus int
		verify     func(t *testing.T, body map[string]any)
	}

	tests := []testCase{
		{
			name: "Success",
			body: `{"itemName":"装修尾款","totalAmount":"12000.5","paymentType":"single","startDate":"2024-07-01","projectId":"` + projectID.String() + `"}`,
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusCreated,
			verify: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "12000.50", body["totalAmount"])
				assert.Equal(t, "0.00", body["paidAmount"])
				assert.Equal(t, "12000.50", body["remainingAmount"])
				assert.Equal(t, "pending", body["status"])
				assert.Equal(t, "2024-07-01", body["startDate"])
				assert.Nil(t, body["endDate"])
			},
		},
		{
			name:       "ValidationErrors",
			body:       `{"itemName":"","totalAmount":"-1","paymentType":"weekly","startDate":"2024-07-01","projectId":"` + projectID.String() + `"}`,
			wantStatus: http.StatusBadRequest,
			verify: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "validation failed", body["message"])
				assert.Len(t, body["errors"], 3)
			},
		},
		{
			name:       "UnknownField",
			body:       `{"itemName":"x","totalAmount":"1","paymentType":"single","startDate":"2024-07-01","projectId":"` + projectID.String() + `","status":"paid"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMock != nil {
				tt.setupMock(f.repo)
			}

			req := httptest.NewRequest(http.MethodPost, "/payment/items", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := f.do(req)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.verify != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				tt.verify(t, body)
			}
		})
	}
}

func TestHandler_List(t *testing.T) {
	type testCase struct {
		name       string
		query      string
		setupMock  func(m *payment.MockRepository)
		wantStatus int
		wantNames  []string
		wantPages  float64
	}

	rent := sampleItem("3000", "0")
	rent.ItemName = "房租"
	deposit := sampleItem("500", "500")
	deposit.ItemName = "押金"
	deposit.Status = payment.StatusPaid

	tests := []testCase{
		{
			name:  "SortedAndPaged",
			query: "?sortBy=totalAmount&sortOrder=asc&limit=1",
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().ListItems(gomock.Any(), payment.StoreFilter{}).Return([]*payment.Item{rent, deposit}, nil)
			},
			wantStatus: http.StatusOK,
			wantNames:  []string{"押金"},
			wantPages:  2,
		},
		{
			name:  "StatusFilter",
			query: "?status=paid",
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().ListItems(gomock.Any(), gomock.Any()).Return([]*payment.Item{rent, deposit}, nil)
			},
			wantStatus: http.StatusOK,
			wantNames:  []string{"押金"},
			wantPages:  1,
		},
		{
			name:       "BadParameters",
			query:      "?status=late&sortBy=color&projectId=abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMock != nil {
				tt.setupMock(f.repo)
			}

			rec := f.do(httptest.NewRequest(http.MethodGet, "/payment/items"+tt.query, nil))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Items []struct {
					ItemName string `json:"itemName"`
				} `json:"items"`
				Pagination map[string]float64 `json:"pagination"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			names := make([]string, len(body.Items))
			for i, it := range body.Items {
				names[i] = it.ItemName
			}

			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantPages, body.Pagination["totalPages"])
		})
	}
}

func TestHandler_GetNotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.repo.EXPECT().GetItem(gomock.Any(), id, false).Return(nil, payment.ErrNotFound)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/payment/items/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"payment item not found"}`, rec.Body.String())
}

func TestHandler_GetBadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/payment/items/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_PatchClearsEndDate(t *testing.T) {
	f := newFixture(t)

	item := sampleItem("800", "0")
	item.EndDate = new(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))

	f.repo.EXPECT().GetItem(gomock.Any(), item.ID, false).Return(item, nil)
	f.repo.EXPECT().
		UpdateItem(gomock.Any(), gomock.Any(), fixedNow).
		DoAndReturn(func(_ context.Context, it *payment.Item, _ time.Time) error {
			assert.Nil(t, it.EndDate)
			assert.Equal(t, "新名称", it.ItemName)
			return nil
		})
	f.repo.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)

	req := httptest.NewRequest(http.MethodPatch, "/payment/items/"+item.ID.String(), strings.NewReader(`{"itemName":"新名称","endDate":null}`))
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"endDate":null`)
}

func TestHandler_AddPaymentJSON(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	ptx := payment.NewMockPaymentTx(ctrl)

	item := sampleItem("1000", "0")
	updated := *item
	updated.PaidAmount = decimal.RequireFromString("400")
	updated.Status = payment.StatusPartial

	f.repo.EXPECT().BeginPayment(gomock.Any(), item.ID).Return(ptx, nil)
	ptx.EXPECT().LockItem(gomock.Any()).Return(item, nil)
	ptx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)
	ptx.EXPECT().Reconcile(gomock.Any(), fixedNow).Return(&updated, nil)
	ptx.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)
	ptx.EXPECT().Commit().Return(nil)
	ptx.EXPECT().Rollback().Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/payment/items/"+item.ID.String()+"/payments",
		strings.NewReader(`{"amount":"400","paymentMethod":"微信"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Item    map[string]any `json:"item"`
		Payment map[string]any `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "partial", body.Item["status"])
	assert.Equal(t, "600.00", body.Item["remainingAmount"])
	assert.Equal(t, "400.00", body.Payment["amountPaid"])
	assert.Equal(t, "2024-06-15", body.Payment["paymentDate"])
}

func TestHandler_AddPaymentRejectedRemovesReceipt(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	ptx := payment.NewMockPaymentTx(ctrl)

	item := sampleItem("100", "0")

	f.repo.EXPECT().BeginPayment(gomock.Any(), item.ID).Return(ptx, nil)
	ptx.EXPECT().LockItem(gomock.Any()).Return(item, nil)
	ptx.EXPECT().Rollback().Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("amount", "150"))

	part, err := mw.CreateFormFile("receipt", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/payment/items/"+item.ID.String()+"/payments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds remaining balance")

	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandler_DeletePermanentRemovesReceipts(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	require.NoError(t, os.WriteFile(filepath.Join(f.uploadDir, "r1.png"), []byte("x"), 0o600))

	f.repo.EXPECT().DeleteItemPermanently(gomock.Any(), id).Return([]string{"/uploads/r1.png"}, true, nil)

	rec := f.do(httptest.NewRequest(http.MethodDelete, "/payment/items/"+id.String()+"/permanent", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandler_Import(t *testing.T) {
	f := newFixture(t)
	projectID := uuid.New()

	f.repo.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.repo.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("projectId", projectID.String()))

	part, err := mw.CreateFormFile("file", "items.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("名称,金额,开始日期\n房租,3000,2024-07-01\n押金,abc,2024-07-01\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/payment/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := f.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Total   int                 `json:"total"`
		Created int                 `json:"created"`
		Errors  []importer.RowError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Created)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, 3, body.Errors[0].Row)
}
