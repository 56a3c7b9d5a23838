package notification_test

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
	"github.com/MrJamesThe3rd/caiwu/internal/notification"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

var now = time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

func item(name string, due time.Time, total, paid string) *payment.Item {
	return &payment.Item{
		ID:          uuid.New(),
		ItemName:    name,
		TotalAmount: decimal.RequireFromString(total),
		PaidAmount:  decimal.RequireFromString(paid),
		StartDate:   due,
	}
}

func defaultSettings() *notification.Settings {
	return &notification.Settings{Enabled: true, DaysBefore: 3, DueSoonEnabled: true, OverdueEnabled: true}
}

func TestService_GenerateReminders(t *testing.T) {
	rent := item("办公室租金", time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), "8000", "0")
	water := item("水费", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "120.5", "20")
	deposit := item("装修尾款", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "30000", "0")

	type testCase struct {
		name        string
		settings    *notification.Settings
		setupMock   func(repo *notification.MockRepository, pay *notification.MockPayments)
		wantCreated int
		wantScanned int
		wantErr     bool
	}

	tests := []testCase{
		{
			name:     "CreatesDueSoonAndOverdue",
			settings: defaultSettings(),
			setupMock: func(repo *notification.MockRepository, pay *notification.MockPayments) {
				pay.EXPECT().RefreshOverdue(gomock.Any(), now).Return(int64(1), nil)
				pay.EXPECT().
					DueItems(gomock.Any(), time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC)).
					Return([]*payment.Item{deposit, water, rent}, nil)

				gomock.InOrder(
					repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
						DoAndReturn(func(_ context.Context, n *notification.Notification) (bool, error) {
							assert.Equal(t, notification.KindOverdue, n.Kind)
							assert.Equal(t, "逾期提醒：装修尾款", n.Title)
							assert.Contains(t, n.Message, "已逾期 5 天")
							assert.Contains(t, n.Message, "¥30000.00")
							assert.Equal(t, deposit.ID, *n.ItemID)

							return true, nil
						}),
					repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
						DoAndReturn(func(_ context.Context, n *notification.Notification) (bool, error) {
							assert.Equal(t, notification.KindDueSoon, n.Kind)
							assert.Contains(t, n.Message, "今天（2024-06-15）到期")
							assert.Contains(t, n.Message, "¥100.50")

							return true, nil
						}),
					repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
						DoAndReturn(func(_ context.Context, n *notification.Notification) (bool, error) {
							assert.Equal(t, notification.KindDueSoon, n.Kind)
							assert.Contains(t, n.Message, "还有 2 天")
							assert.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), n.DueDate)

							return true, nil
						}),
				)
			},
			wantCreated: 3,
			wantScanned: 3,
		},
		{
			name:     "ExistingRemindersAreNotCounted",
			settings: defaultSettings(),
			setupMock: func(repo *notification.MockRepository, pay *notification.MockPayments) {
				pay.EXPECT().RefreshOverdue(gomock.Any(), now).Return(int64(0), nil)
				pay.EXPECT().DueItems(gomock.Any(), gomock.Any()).Return([]*payment.Item{water, rent}, nil)
				repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
			},
			wantCreated: 0,
			wantScanned: 2,
		},
		{
			name: "OverdueSwitchedOff",
			settings: &notification.Settings{
				Enabled: true, DaysBefore: 3, DueSoonEnabled: true, OverdueEnabled: false,
			},
			setupMock: func(repo *notification.MockRepository, pay *notification.MockPayments) {
				pay.EXPECT().RefreshOverdue(gomock.Any(), now).Return(int64(0), nil)
				pay.EXPECT().DueItems(gomock.Any(), gomock.Any()).Return([]*payment.Item{deposit, rent}, nil)
				repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(true, nil).Times(1)
			},
			wantCreated: 1,
			wantScanned: 2,
		},
		{
			name:     "Disabled",
			settings: &notification.Settings{Enabled: false, DaysBefore: 3},
		},
		{
			name:     "DueItemsError",
			settings: defaultSettings(),
			setupMock: func(_ *notification.MockRepository, pay *notification.MockPayments) {
				pay.EXPECT().RefreshOverdue(gomock.Any(), now).Return(int64(0), nil)
				pay.EXPECT().DueItems(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := notification.NewMockRepository(ctrl)
			pay := notification.NewMockPayments(ctrl)

			repo.EXPECT().GetSettings(gomock.Any()).Return(tt.settings, nil)

			if tt.setupMock != nil {
				tt.setupMock(repo, pay)
			}

			run, err := notification.NewService(repo, pay).GenerateReminders(context.Background(), now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, run.Created)
			assert.Equal(t, tt.wantScanned, run.Scanned)
		})
	}
}

func TestService_List_ClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := notification.NewMockRepository(ctrl)
	svc := notification.NewService(repo, nil)

	repo.EXPECT().List(gomock.Any(), true, notification.DefaultLimit).Return(nil, nil)
	repo.EXPECT().List(gomock.Any(), false, notification.MaxLimit).Return(nil, nil)

	_, err := svc.List(context.Background(), true, 0)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), false, 10000)
	require.NoError(t, err)
}

func TestService_MarkRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := notification.NewMockRepository(ctrl)
	repo.EXPECT().MarkRead(gomock.Any(), id).Return(false, nil)

	err := notification.NewService(repo, nil).MarkRead(context.Background(), id)
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestService_UpdateSettings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := notification.NewMockRepository(ctrl)
	svc := notification.NewService(repo, nil)

	_, err := svc.UpdateSettings(context.Background(), notification.Settings{Enabled: true, DaysBefore: 61})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))

	repo.EXPECT().UpdateSettings(gomock.Any(), gomock.Any()).Return(nil)

	got, err := svc.UpdateSettings(context.Background(), notification.Settings{Enabled: true, DaysBefore: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, got.DaysBefore)
}
