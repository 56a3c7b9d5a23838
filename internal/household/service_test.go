package household_test

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
	"github.com/MrJamesThe3rd/caiwu/internal/household"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseMonth(t *testing.T) {
	m, err := household.ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), m)
	assert.Equal(t, "2024-02", household.FormatMonth(m))

	from, until := household.MonthRange(time.Date(2024, 12, 17, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), until)

	_, err = household.ParseMonth("2024/02")
	assert.ErrorIs(t, err, household.ErrInvalidMonth)
}

func TestSummarize(t *testing.T) {
	food := &household.Category{Name: "餐饮"}
	transport := &household.Category{Name: "交通"}
	gifts := &household.Category{Name: "礼金"}

	got := household.Summarize(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), []household.CategoryTotals{
		{Category: food, Budget: dec("3000"), Spent: dec("2250")},
		{Category: transport, Budget: dec("500"), Spent: dec("620.50")},
		{Category: gifts, Budget: decimal.Zero, Spent: dec("200")},
	})

	require.Len(t, got.Categories, 3)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.Month)

	assert.Equal(t, "75", got.Categories[0].UsagePercent.String())
	assert.Equal(t, "750", got.Categories[0].Remaining.String())
	assert.False(t, got.Categories[0].OverBudget)

	assert.Equal(t, "124.1", got.Categories[1].UsagePercent.String())
	assert.Equal(t, "-120.5", got.Categories[1].Remaining.String())
	assert.True(t, got.Categories[1].OverBudget)

	assert.True(t, got.Categories[2].UsagePercent.IsZero())
	assert.True(t, got.Categories[2].OverBudget)

	assert.Equal(t, "3500", got.TotalBudget.String())
	assert.Equal(t, "3070.5", got.TotalSpent.String())
	assert.Equal(t, "429.5", got.TotalRemaining.String())
}

func TestService_MonthSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := household.NewMockRepository(ctrl)
	repo.EXPECT().
		MonthTotals(gomock.Any(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)).
		Return([]household.CategoryTotals{{Category: &household.Category{Name: "餐饮"}, Budget: dec("100"), Spent: dec("40")}}, nil)

	got, err := household.NewService(repo).MonthSummary(context.Background(), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "60", got.TotalRemaining.String())
}

func TestService_SetBudget(t *testing.T) {
	categoryID := uuid.New()

	type testCase struct {
		name      string
		amount    decimal.Decimal
		setupMock func(m *household.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name:   "UpsertsFirstOfMonth",
			amount: dec("1500"),
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().GetCategory(gomock.Any(), categoryID).Return(&household.Category{ID: categoryID}, nil)
				m.EXPECT().
					UpsertBudget(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, b *household.Budget) error {
						assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), b.Month)
						return nil
					})
			},
		},
		{
			name:   "ZeroIsAllowed",
			amount: decimal.Zero,
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().GetCategory(gomock.Any(), categoryID).Return(&household.Category{ID: categoryID}, nil)
				m.EXPECT().UpsertBudget(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:    "Negative",
			amount:  dec("-1"),
			wantErr: true,
		},
		{
			name:   "UnknownCategory",
			amount: dec("10"),
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().GetCategory(gomock.Any(), categoryID).Return(nil, household.ErrCategoryNotFound)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := household.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := household.NewService(repo).SetBudget(
				context.Background(), categoryID, time.Date(2024, 7, 19, 0, 0, 0, 0, time.UTC), tt.amount)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, categoryID, got.CategoryID)
		})
	}
}

func TestService_ListExpenses_InvertedRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := household.NewService(household.NewMockRepository(ctrl)).
		ListExpenses(context.Background(), household.ExpenseFilter{From: &from, To: &to})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))
}
