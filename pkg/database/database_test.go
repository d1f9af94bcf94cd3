package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow-backend/pkg/database"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

func newMock(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return database.Wrap(sqlx.NewDb(raw, "postgres"), logger.Nop()), mock
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM leads").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.Transaction(ctx, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM leads")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := db.Transaction(ctx, func(*sqlx.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("panic rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = db.Transaction(ctx, func(*sqlx.Tx) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInTx_Nested(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leads").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE leads").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.InTx(ctx, func(ctx context.Context) error {
		if _, err := db.Ext(ctx).ExecContext(ctx, "UPDATE leads"); err != nil {
			return err
		}
		return db.InTx(ctx, func(ctx context.Context) error {
			_, err := db.Ext(ctx).ExecContext(ctx, "UPDATE leads")
			return err
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPing()
	assert.Equal(t, "up", db.Health(context.Background())["status"])

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	status := db.Health(context.Background())
	assert.Equal(t, "down", status["status"])
	assert.Equal(t, "connection refused", status["error"])
}
