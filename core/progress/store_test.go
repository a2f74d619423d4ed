package progress

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestUpsertViewIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now().UTC()
	lp := LectureProgress{
		UserID:    "u1",
		LectureID: "l1",
		CourseID:  "c1",
		Viewed:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lecture_progress")).
		WithArgs("u1", "l1", "c1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpsertView(context.Background(), db, lp))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lecture_progress")).
		WithArgs("u1", "l1", "c1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpsertView(context.Background(), db, lp))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchViews(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now().UTC()
	cols := []string{"user_id", "lecture_id", "course_id", "viewed", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("u1", "l1", "c1", true, now, now).
		AddRow("u1", "l2", "c1", true, now.Add(time.Minute), now.Add(time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM lecture_progress")).
		WithArgs("u1", "c1").
		WillReturnRows(rows)

	lps, err := FetchViews(context.Background(), db, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, lps, 2)
	assert.Equal(t, "l1", lps[0].LectureID)
	assert.Equal(t, "l2", lps[1].LectureID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCompletionToggles(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now().UTC()
	cp := CourseProgress{
		UserID:    "u1",
		CourseID:  "c1",
		Completed: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_progress")).
		WithArgs("u1", "c1", true, sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpsertCompletion(context.Background(), db, cp))

	cp.Completed = false
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_progress")).
		WithArgs("u1", "c1", false, sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpsertCompletion(context.Background(), db, cp))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchCompletionMissing(t *testing.T) {
	db, mock := newMockDB(t)

	cols := []string{"user_id", "course_id", "completed", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_progress")).
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err := FetchCompletion(context.Background(), db, "u1", "c1")
	require.Error(t, err)
	assert.True(t, database.IsNoRows(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
