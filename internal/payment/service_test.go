package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestService_Create(t *testing.T) {
	projectID := uuid.New()

	type args struct {
		params payment.CreateParams
	}

	type testCase struct {
		name       string
		args       args
		setupMock  func(m *payment.MockRepository)
		wantStatus payment.Status
		wantFields []string
		wantErr    bool
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{params: payment.CreateParams{
				ItemName:    "  Office Rent ",
				TotalAmount: dec("5000.00"),
				PaymentType: payment.TypeMonthly,
				StartDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
				ProjectID:   projectID,
			}},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().
					CreateItem(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, it *payment.Item) error {
						assert.Equal(t, "Office Rent", it.ItemName)
						assert.Equal(t, payment.SourceManual, it.Source)
						it.ID = uuid.New()
						return nil
					})
				m.EXPECT().
					CreateAuditLog(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, log *payment.AuditLog) error {
						assert.Equal(t, payment.ActionCreate, log.Action)
						return nil
					})
			},
			wantStatus: payment.StatusPending,
		},
		{
			name: "PastDueStartsOverdue",
			args: args{params: payment.CreateParams{
				ItemName:    "Insurance",
				TotalAmount: dec("800"),
				PaymentType: payment.TypeSingle,
				StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				ProjectID:   projectID,
			}},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: payment.StatusOverdue,
		},
		{
			name: "AuditFailureIsNotFatal",
			args: args{params: payment.CreateParams{
				ItemName:    "Water",
				TotalAmount: dec("12.5"),
				PaymentType: payment.TypeMonthly,
				StartDate:   fixedNow,
				ProjectID:   projectID,
			}},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantStatus: payment.StatusPending,
		},
		{
			name: "ValidationFailure",
			args: args{params: payment.CreateParams{
				ItemName:    "",
				TotalAmount: dec("10.001"),
				PaymentType: "weekly",
				StartDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				EndDate:     new(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			}},
			wantFields: []string{"itemName", "totalAmount", "paymentType", "endDate", "projectId"},
			wantErr:    true,
		},
		{
			name: "RepoError",
			args: args{params: payment.CreateParams{
				ItemName:    "Rent",
				TotalAmount: dec("1"),
				PaymentType: payment.TypeSingle,
				StartDate:   fixedNow,
				ProjectID:   projectID,
			}},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := payment.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := payment.NewService(repo, payment.WithClock(clock))
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				if tt.wantFields != nil {
					appErr, ok := apperr.As(err)
					require.True(t, ok)
					assert.Equal(t, apperr.KindInvalid, appErr.Kind)

					var fields []string
					for _, f := range appErr.Fields {
						fields = append(fields, f.Field)
					}

					assert.Equal(t, tt.wantFields, fields)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.True(t, got.PaidAmount.IsZero())
		})
	}
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := payment.NewMockRepository(ctrl)
	projectID := uuid.New()

	filter := payment.ListFilter{
		StoreFilter: payment.StoreFilter{ProjectID: &projectID},
		Criteria:    payment.Criteria{Search: "rent"},
		SortKey:     payment.SortByTotalAmount,
		Direction:   payment.Desc,
		Page:        1,
		PageSize:    1,
	}

	repo.EXPECT().
		ListItems(gomock.Any(), filter.StoreFilter).
		Return([]*payment.Item{
			{ItemName: "Rent A", TotalAmount: dec("100")},
			{ItemName: "Water", TotalAmount: dec("900")},
			{ItemName: "Rent B", TotalAmount: dec("300")},
		}, nil)

	svc := payment.NewService(repo)
	got, err := svc.List(context.Background(), filter)

	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Rent B", got.Items[0].ItemName)
	assert.Equal(t, payment.PageInfo{Page: 1, PageSize: 1, TotalPages: 2, TotalItems: 2}, got.Page)
}

func TestService_Patch(t *testing.T) {
	id := uuid.New()

	stored := func() *payment.Item {
		return &payment.Item{
			ID:          id,
			ItemName:    "Rent",
			TotalAmount: dec("1000"),
			PaidAmount:  dec("400"),
			Status:      payment.StatusPartial,
			PaymentType: payment.TypeMonthly,
			StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     new(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			ProjectID:   uuid.New(),
			Source:      payment.SourceManual,
		}
	}

	type testCase struct {
		name      string
		params    payment.PatchParams
		setupMock func(m *payment.MockRepository)
		check     func(t *testing.T, got *payment.Item)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "RaiseTotalKeepsOtherFields",
			params: payment.PatchParams{TotalAmount: new(dec("1500"))},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().GetItem(gomock.Any(), id, false).Return(stored(), nil)
				m.EXPECT().UpdateItem(gomock.Any(), gomock.Any(), fixedNow).Return(nil)
				m.EXPECT().
					CreateAuditLog(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, log *payment.AuditLog) error {
						assert.Equal(t, payment.ActionUpdate, log.Action)
						assert.Equal(t, []payment.Change{{Field: "totalAmount", Old: "1000.00", New: "1500.00"}}, log.Changes)
						return nil
					})
			},
			check: func(t *testing.T, got *payment.Item) {
				assert.Equal(t, "Rent", got.ItemName)
				assert.Equal(t, payment.StatusPartial, got.Status)
				assert.NotNil(t, got.EndDate)
			},
		},
		{
			name:   "LowerTotalToPaidSettlesItem",
			params: payment.PatchParams{TotalAmount: new(dec("400")), ClearEndDate: true},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().GetItem(gomock.Any(), id, false).Return(stored(), nil)
				m.EXPECT().UpdateItem(gomock.Any(), gomock.Any(), fixedNow).Return(nil)
				m.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, got *payment.Item) {
				assert.Equal(t, payment.StatusPaid, got.Status)
				assert.Nil(t, got.EndDate)
			},
		},
		{
			name:   "TotalBelowPaid",
			params: payment.PatchParams{TotalAmount: new(dec("399.99"))},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().GetItem(gomock.Any(), id, false).Return(stored(), nil)
			},
			wantErr: payment.ErrTotalBelowPaid,
		},
		{
			// paid was 400 when read; a payment committed before the locked update
			name:   "TotalBelowPaidUnderLock",
			params: payment.PatchParams{TotalAmount: new(dec("500"))},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().GetItem(gomock.Any(), id, false).Return(stored(), nil)
				m.EXPECT().UpdateItem(gomock.Any(), gomock.Any(), fixedNow).Return(payment.ErrTotalBelowPaid)
			},
			wantErr: payment.ErrTotalBelowPaid,
		},
		{
			name:   "MergedResultIsValidated",
			params: payment.PatchParams{StartDate: new(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().GetItem(gomock.Any(), id, false).Return(stored(), nil)
			},
		},
		{
			name:   "NotFound",
			params: payment.PatchParams{Notes: new("x")},
			setupMock: func(m *payment.MockRepository) {
				m.EXPECT().GetItem(gomock.Any(), id, false).Return(nil, payment.ErrNotFound)
			},
			wantErr: payment.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := payment.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := payment.NewService(repo, payment.WithClock(clock))
			got, err := svc.Patch(context.Background(), id, tt.params)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.check == nil:
				assert.True(t, apperr.IsKind(err, apperr.KindInvalid), "got %v", err)
			default:
				require.NoError(t, err)
				tt.check(t, got)
			}
		})
	}
}

func TestService_AddPayment(t *testing.T) {
	itemID := uuid.New()

	lockedItem := func(paid string) *payment.Item {
		return &payment.Item{
			ID:          itemID,
			ItemName:    "Deposit",
			TotalAmount: dec("1000.00"),
			PaidAmount:  dec(paid),
			PaymentType: payment.TypeInstallment,
			StartDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			Status:      payment.ClassifyStatus(dec(paid), dec("1000.00"), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), fixedNow),
		}
	}

	reconciled := func(paid string) *payment.Item {
		it := lockedItem(paid)
		it.Status = payment.ClassifyStatus(it.PaidAmount, it.TotalAmount, it.DueDate(), fixedNow)

		return it
	}

	type args struct {
		params payment.PaymentParams
	}

	type testCase struct {
		name       string
		args       args
		setupMock  func(repo *payment.MockRepository, tx *payment.MockPaymentTx)
		wantStatus payment.Status
		wantErr    error
	}

	tests := []testCase{
		{
			name: "FirstInstallmentIsPartial",
			args: args{params: payment.PaymentParams{Amount: dec("400.00"), PaymentMethod: " 银行转账 "}},
			setupMock: func(repo *payment.MockRepository, tx *payment.MockPaymentTx) {
				repo.EXPECT().BeginPayment(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(lockedItem("0"), nil)
				tx.EXPECT().
					CreateRecord(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, rec *payment.Record) error {
						assert.Equal(t, "银行转账", rec.PaymentMethod)
						assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), rec.PaymentDate)
						return nil
					})
				tx.EXPECT().Reconcile(gomock.Any(), fixedNow).Return(reconciled("400.00"), nil)
				tx.EXPECT().
					CreateAuditLog(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, log *payment.AuditLog) error {
						assert.Equal(t, payment.ActionPaymentAdded, log.Action)
						assert.Equal(t, []payment.Change{
							{Field: "paidAmount", Old: "0.00", New: "400.00"},
							{Field: "status", Old: "pending", New: "partial"},
						}, log.Changes)
						return nil
					})
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantStatus: payment.StatusPartial,
		},
		{
			name: "RemainderSettlesItem",
			args: args{params: payment.PaymentParams{Amount: dec("600.00")}},
			setupMock: func(repo *payment.MockRepository, tx *payment.MockPaymentTx) {
				repo.EXPECT().BeginPayment(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(lockedItem("400.00"), nil)
				tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().Reconcile(gomock.Any(), fixedNow).Return(reconciled("1000.00"), nil)
				tx.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantStatus: payment.StatusPaid,
		},
		{
			name: "ExceedsRemainingWritesNothing",
			args: args{params: payment.PaymentParams{Amount: dec("50")}},
			setupMock: func(repo *payment.MockRepository, tx *payment.MockPaymentTx) {
				repo.EXPECT().BeginPayment(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(reconciled("1000.00"), nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: payment.ErrExceedsRemaining,
		},
		{
			name:    "ZeroAmount",
			args:    args{params: payment.PaymentParams{Amount: decimal.Zero}},
			wantErr: payment.ErrInvalidAmount,
		},
		{
			name:    "TooManyDecimals",
			args:    args{params: payment.PaymentParams{Amount: dec("1.005")}},
			wantErr: payment.ErrInvalidAmount,
		},
		{
			name: "MissingItem",
			args: args{params: payment.PaymentParams{Amount: dec("1")}},
			setupMock: func(repo *payment.MockRepository, tx *payment.MockPaymentTx) {
				repo.EXPECT().BeginPayment(gomock.Any(), itemID).Return(tx, nil)
				tx.EXPECT().LockItem(gomock.Any()).Return(nil, payment.ErrNotFound)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: payment.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := payment.NewMockRepository(ctrl)
			tx := payment.NewMockPaymentTx(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo, tx)
			}

			svc := payment.NewService(repo, payment.WithClock(clock))
			item, rec, err := svc.AddPayment(context.Background(), itemID, tt.args.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, item)
				assert.Nil(t, rec)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, item.Status)
			assert.Equal(t, itemID, rec.ItemID)
		})
	}
}

func TestService_AddPayment_ExceedsRemainingMessage(t *testing.T) {
	assert.Equal(t, "payment amount exceeds remaining balance", payment.ErrExceedsRemaining.Error())
}

func TestService_DeletePayment(t *testing.T) {
	itemID, recordID := uuid.New(), uuid.New()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payment.NewMockRepository(ctrl)
		tx := payment.NewMockPaymentTx(ctrl)

		repo.EXPECT().BeginPayment(gomock.Any(), itemID).Return(tx, nil)
		tx.EXPECT().LockItem(gomock.Any()).Return(&payment.Item{ID: itemID, PaidAmount: dec("1000"), Status: payment.StatusPaid}, nil)
		tx.EXPECT().SoftDeleteRecord(gomock.Any(), recordID).Return(true, nil)
		tx.EXPECT().Reconcile(gomock.Any(), fixedNow).
			Return(&payment.Item{ID: itemID, PaidAmount: dec("400"), Status: payment.StatusPartial}, nil)
		tx.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil)
		tx.EXPECT().Commit().Return(nil)
		tx.EXPECT().Rollback().Return(nil)

		svc := payment.NewService(repo, payment.WithClock(clock))
		got, err := svc.DeletePayment(context.Background(), itemID, recordID)

		require.NoError(t, err)
		assert.Equal(t, payment.StatusPartial, got.Status)
	})

	t.Run("RecordNotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payment.NewMockRepository(ctrl)
		tx := payment.NewMockPaymentTx(ctrl)

		repo.EXPECT().BeginPayment(gomock.Any(), itemID).Return(tx, nil)
		tx.EXPECT().LockItem(gomock.Any()).Return(&payment.Item{ID: itemID}, nil)
		tx.EXPECT().SoftDeleteRecord(gomock.Any(), recordID).Return(false, nil)
		tx.EXPECT().Rollback().Return(nil)

		svc := payment.NewService(repo, payment.WithClock(clock))
		_, err := svc.DeletePayment(context.Background(), itemID, recordID)

		assert.ErrorIs(t, err, payment.ErrRecordNotFound)
	})
}

func TestService_DeleteAndRestore(t *testing.T) {
	id := uuid.New()

	t.Run("DeleteMissing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payment.NewMockRepository(ctrl)
		repo.EXPECT().SoftDeleteItem(gomock.Any(), id).Return(false, nil)

		err := payment.NewService(repo).Delete(context.Background(), id)
		assert.ErrorIs(t, err, payment.ErrNotFound)
	})

	t.Run("RestoreReconciles", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payment.NewMockRepository(ctrl)
		gomock.InOrder(
			repo.EXPECT().RestoreItem(gomock.Any(), id).Return(true, nil),
			repo.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil),
			repo.EXPECT().Reconcile(gomock.Any(), id, fixedNow).Return(&payment.Item{ID: id, Status: payment.StatusOverdue}, nil),
		)

		got, err := payment.NewService(repo, payment.WithClock(clock)).Restore(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusOverdue, got.Status)
	})

	t.Run("DeletePermanentMissing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payment.NewMockRepository(ctrl)
		repo.EXPECT().DeleteItemPermanently(gomock.Any(), id).Return(nil, false, nil)

		receipts, err := payment.NewService(repo).DeletePermanent(context.Background(), id)
		assert.ErrorIs(t, err, payment.ErrNotFound)
		assert.Nil(t, receipts)
	})

	t.Run("DeletePermanentReturnsReceipts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payment.NewMockRepository(ctrl)
		repo.EXPECT().DeleteItemPermanently(gomock.Any(), id).Return([]string{"/uploads/a.png"}, true, nil)

		receipts, err := payment.NewService(repo).DeletePermanent(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []string{"/uploads/a.png"}, receipts)
	})
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := payment.NewMockRepository(ctrl)
	repo.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	repo.EXPECT().CreateAuditLog(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	valid := payment.CreateParams{
		ItemName:    "Rent",
		TotalAmount: dec("100"),
		PaymentType: payment.TypeMonthly,
		StartDate:   fixedNow,
		ProjectID:   uuid.New(),
	}
	invalid := valid
	invalid.TotalAmount = dec("-1")

	results := payment.NewService(repo, payment.WithClock(clock)).
		CreateBatch(context.Background(), []payment.CreateParams{valid, invalid, valid})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, 1, results[1].Index)
	assert.NoError(t, results[2].Err)
}
