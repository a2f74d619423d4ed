package progress

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

// UpsertView marks the lecture as viewed. Safe to call on every
// playback start: a second call leaves the single row in place.
func UpsertView(ctx context.Context, db sqlx.ExtContext, lp LectureProgress) error {
	const q = `
	INSERT INTO lecture_progress
		(user_id, lecture_id, course_id, viewed, created_at, updated_at)
	VALUES
		(:user_id, :lecture_id, :course_id, TRUE, :created_at, :updated_at)
	ON CONFLICT (user_id, lecture_id) DO UPDATE
	SET viewed = TRUE, updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, lp); err != nil {
		return fmt.Errorf("upserting lecture progress: %w", err)
	}

	return nil
}

func FetchViews(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) ([]LectureProgress, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{UserID: userID, CourseID: courseID}

	const q = `
	SELECT * FROM lecture_progress
	WHERE user_id = :user_id AND course_id = :course_id
	ORDER BY created_at`

	lps := []LectureProgress{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &lps); err != nil {
		return nil, fmt.Errorf("listing lecture progress: %w", err)
	}

	return lps, nil
}

// UpsertCompletion sets the manual course-completion flag either way.
func UpsertCompletion(ctx context.Context, db sqlx.ExtContext, cp CourseProgress) error {
	const q = `
	INSERT INTO course_progress
		(user_id, course_id, completed, created_at, updated_at)
	VALUES
		(:user_id, :course_id, :completed, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE
	SET completed = :completed, updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, cp); err != nil {
		return fmt.Errorf("upserting course progress: %w", err)
	}

	return nil
}

func FetchCompletion(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (CourseProgress, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{UserID: userID, CourseID: courseID}

	const q = `
	SELECT * FROM course_progress
	WHERE user_id = :user_id AND course_id = :course_id`

	var cp CourseProgress
	if err := database.NamedQueryStruct(ctx, db, q, in, &cp); err != nil {
		return CourseProgress{}, fmt.Errorf("fetching course progress: %w", err)
	}

	return cp, nil
}
