package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	fnErr := errors.New("function failed")

	tests := []struct {
		name        string
		expect      func(mock sqlmock.Sqlmock)
		fn          TxFn
		wantErrIs   []error
		wantErrText string
	}{
		{
			name: "commits on success",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx *sql.Tx) error { return nil },
		},
		{
			name: "rolls back and returns the function error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs: []error{fnErr},
		},
		{
			name: "begin failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("no connection"))
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrText: "failed to begin transaction",
		},
		{
			name: "commit failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errors.New("commit failed"))
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs:   []error{ErrTransactionFailed},
			wantErrText: "commit failed",
		},
		{
			name: "rollback failure keeps the original error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs:   []error{fnErr},
			wantErrText: "rollback failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.expect(mock)

			err = RunInTransaction(context.Background(), db, tt.fn)
			if len(tt.wantErrIs) == 0 && tt.wantErrText == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				for _, target := range tt.wantErrIs {
					assert.ErrorIs(t, err, target)
				}
				if tt.wantErrText != "" {
					assert.Contains(t, err.Error(), tt.wantErrText)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransaction_Panic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
