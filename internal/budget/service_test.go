package budget_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/budget"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

var fixedNow = time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

func TestService_ConvertToPayment(t *testing.T) {
	itemID, projectID, categoryID := uuid.New(), uuid.New(), uuid.New()
	due := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	open := func() *budget.Item {
		return &budget.Item{
			ID:            itemID,
			ItemName:      "空调",
			PlannedAmount: decimal.RequireFromString("4999.00"),
			CategoryID:    &categoryID,
			DueDate:       &due,
		}
	}

	type testCase struct {
		name      string
		params    budget.ConvertParams
		setupMock func(repo *budget.MockRepository, tx *budget.MockConversionTx)
		wantErr   error
		wantKind  apperr.Kind
	}

	tests := []testCase{
		{
			name:   "Success",
			params: budget.ConvertParams{ProjectID: projectID},
			setupMock: func(repo *budget.MockRepository, tx *budget.MockConversionTx) {
				paymentID := uuid.New()

				repo.EXPECT().BeginConversion(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(open(), nil)
				tx.EXPECT().
					CreatePaymentItem(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, pi *payment.Item) error {
						assert.Equal(t, "空调", pi.ItemName)
						assert.Equal(t, "4999", pi.TotalAmount.String())
						assert.Equal(t, payment.TypeSingle, pi.PaymentType)
						assert.Equal(t, due, pi.StartDate)
						assert.Equal(t, &categoryID, pi.CategoryID)
						assert.Equal(t, payment.StatusPending, pi.Status)
						pi.ID = paymentID
						return nil
					})
				tx.EXPECT().
					CreateAuditLog(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, log *payment.AuditLog) error {
						assert.Equal(t, paymentID, log.ItemID)
						assert.Equal(t, payment.ActionCreate, log.Action)
						assert.Equal(t, []payment.Change{{Field: "budgetItemId", New: itemID.String()}}, log.Changes)
						return nil
					})
				tx.EXPECT().MarkConverted(gomock.Any(), paymentID).Return(nil)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name:   "AlreadyConverted",
			params: budget.ConvertParams{ProjectID: projectID},
			setupMock: func(repo *budget.MockRepository, tx *budget.MockConversionTx) {
				converted := open()
				converted.ConvertedToPayment = true

				repo.EXPECT().BeginConversion(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(converted, nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr:  budget.ErrAlreadyConverted,
			wantKind: apperr.KindConflict,
		},
		{
			name:   "MissingProject",
			params: budget.ConvertParams{},
			setupMock: func(repo *budget.MockRepository, tx *budget.MockConversionTx) {
				repo.EXPECT().BeginConversion(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(open(), nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantKind: apperr.KindInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := budget.NewMockRepository(ctrl)
			tx := budget.NewMockConversionTx(ctrl)
			tt.setupMock(repo, tx)

			svc := budget.NewService(repo, budget.WithClock(func() time.Time { return fixedNow }))
			it, pi, err := svc.ConvertToPayment(context.Background(), itemID, tt.params)

			if tt.wantKind != 0 {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, tt.wantKind), "got %v", err)

				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}

				return
			}

			require.NoError(t, err)
			assert.True(t, it.ConvertedToPayment)
			assert.Equal(t, &pi.ID, it.PaymentItemID)
		})
	}
}

func TestService_UpdateItem_Converted(t *testing.T) {
	id := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	repo.EXPECT().GetItem(gomock.Any(), id).Return(&budget.Item{ID: id, ConvertedToPayment: true}, nil)

	_, err := budget.NewService(repo).UpdateItem(context.Background(), id, budget.ItemParams{
		ItemName:      "空调",
		PlannedAmount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, budget.ErrAlreadyConverted)
}

func TestService_PlanDetail(t *testing.T) {
	id := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	repo.EXPECT().GetPlan(gomock.Any(), id).Return(&budget.Plan{ID: id, Name: "2024 装修"}, nil)
	repo.EXPECT().ListItems(gomock.Any(), id).Return([]*budget.Item{
		{PlannedAmount: decimal.RequireFromString("1000.50")},
		{PlannedAmount: decimal.RequireFromString("200"), ConvertedToPayment: true},
	}, nil)

	got, err := budget.NewService(repo).PlanDetail(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "1200.5", got.PlannedTotal.String())
	assert.Equal(t, "200", got.ConvertedTotal.String())
	assert.Len(t, got.Items, 2)
}

func TestService_CreatePlan_Invalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)

	_, err := budget.NewService(repo).CreatePlan(context.Background(), budget.PlanParams{
		Name:        "Q3",
		PeriodStart: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "periodEnd", appErr.Fields[0].Field)
}
