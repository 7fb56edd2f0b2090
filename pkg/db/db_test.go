// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSQLDB(t *testing.T) (*SQLDB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &SQLDB{Conn: conn}, mock
}

func TestSQLDB_ExecContext(t *testing.T) {
	sdb, mock := newMockSQLDB(t)
	mock.ExpectExec("DELETE FROM dbo.Person").WillReturnResult(sqlmock.NewResult(0, 3))

	res, err := sdb.ExecContext(context.Background(), "DELETE FROM dbo.Person")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDB_WithTransaction_CommitsOnSuccess(t *testing.T) {
	sdb, mock := newMockSQLDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dbex_journal").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := sdb.WithTransaction(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, "INSERT INTO dbex_journal (script_name) VALUES ($1)", "001.sql")
		return execErr
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDB_WithTransaction_RollsBackOnError(t *testing.T) {
	sdb, mock := newMockSQLDB(t)
	wantErr := errors.New("script failed")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := sdb.WithTransaction(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_RetriesThenFails(t *testing.T) {
	_, err := Open(context.Background(), "nonexistent-driver", "dsn", RetryPolicy{MaxRetries: 2, Delay: time.Millisecond}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionInit)
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, p.Delay)
}

func TestAdvisoryLockBackoff(t *testing.T) {
	b := AdvisoryLockBackoff(5 * time.Second)
	require.NotNil(t, b)
	assert.LessOrEqual(t, b.Duration(), 5*time.Second)
}
