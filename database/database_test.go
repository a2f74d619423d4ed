package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPingableDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestStatusCheckRetriesWithBackoff(t *testing.T) {
	db, mock := newPingableDB(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()
	mock.ExpectQuery("SELECT true").
		WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, StatusCheck(ctx, db))

	// The failed first attempt must be followed by a pause, not an
	// immediate retry.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusCheckStopsOnContextExpiry(t *testing.T) {
	db, mock := newPingableDB(t)

	for i := 0; i < 5; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	err := StatusCheck(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not ready")
}
