package importer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
	"github.com/MrJamesThe3rd/caiwu/internal/importer"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
)

const importCSV = `项目名称,总金额,开始日期
房租,8000,2024-06-01
网费,abc,2024-06-01
水费,120,2024-06-05
`

func TestService_Import(t *testing.T) {
	projectID := uuid.New()

	type args struct {
		content string
		opts    importer.Options
	}

	type testCase struct {
		name        string
		args        args
		setupMock   func(m *importer.MockPayments)
		wantCreated int
		wantErrRows []int
		wantMessage string
		wantErr     error
	}

	tests := []testCase{
		{
			name: "MixedResults",
			args: args{content: importCSV, opts: importer.Options{ProjectID: projectID}},
			setupMock: func(m *importer.MockPayments) {
				m.EXPECT().
					CreateBatch(gomock.Any(), gomock.Len(2)).
					DoAndReturn(func(_ context.Context, params []payment.CreateParams) []payment.BatchResult {
						assert.Equal(t, projectID, params[0].ProjectID)
						assert.Equal(t, "水费", params[1].ItemName)

						return []payment.BatchResult{
							{Index: 0, Item: &payment.Item{ID: uuid.New(), ItemName: "房租"}},
							{Index: 1, Err: apperr.Validation(apperr.FieldError{Field: "endDate", Message: "must not be before startDate"})},
						}
					})
			},
			wantCreated: 1,
			wantErrRows: []int{3, 4},
		},
		{
			name: "InternalErrorIsNotExposed",
			args: args{content: "项目名称,总金额,开始日期\n房租,8000,2024-06-01\n", opts: importer.Options{ProjectID: projectID}},
			setupMock: func(m *importer.MockPayments) {
				m.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).
					Return([]payment.BatchResult{{Index: 0, Err: errors.New("pq: connection reset")}})
			},
			wantErrRows: []int{2},
		},
		{
			name: "UnknownProject",
			args: args{content: "项目名称,总金额,开始日期\n房租,8000,2024-06-01\n水费,120,2024-06-05\n", opts: importer.Options{ProjectID: projectID}},
			setupMock: func(m *importer.MockPayments) {
				fk := fmt.Errorf("creating payment item: %w", &pgconn.PgError{Code: "23503"})
				m.EXPECT().CreateBatch(gomock.Any(), gomock.Len(2)).
					Return([]payment.BatchResult{{Index: 0, Err: fk}, {Index: 1, Err: fk}})
			},
			wantErrRows: []int{2, 3},
			wantMessage: importer.ErrUnknownReference.Error(),
		},
		{
			name:    "MissingProject",
			args:    args{content: importCSV},
			wantErr: nil,
		},
		{
			name:    "NoDataRows",
			args:    args{content: "项目名称,总金额,开始日期\n\n", opts: importer.Options{ProjectID: projectID}},
			wantErr: importer.ErrNoRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			payments := importer.NewMockPayments(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(payments)
			}

			report, err := importer.NewService(payments).Import(context.Background(), strings.NewReader(tt.args.content), tt.args.opts)

			if tt.args.opts.ProjectID == uuid.Nil {
				assert.True(t, apperr.IsKind(err, apperr.KindInvalid))
				return
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, report.Created, tt.wantCreated)

			rows := make([]int, len(report.Errors))
			for i, e := range report.Errors {
				rows[i] = e.Row
				assert.NotContains(t, e.Message, "pq:")

				if tt.wantMessage != "" {
					assert.Equal(t, tt.wantMessage, e.Message)
				}
			}

			assert.Equal(t, tt.wantErrRows, rows)
		})
	}
}
