package enrollment

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

// Create records the entitlement. Inserting an existing pair is a
// no-op, which keeps webhook retries idempotent.
func Create(ctx context.Context, db sqlx.ExtContext, enr Enrollment) error {
	const q = `
	INSERT INTO enrollments
		(user_id, course_id, created_at)
	VALUES
		(:user_id, :course_id, :created_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, enr); err != nil {
		return fmt.Errorf("inserting enrollment: %w", err)
	}

	return nil
}

// Exists answers whether the user holds an entitlement to the course.
func Exists(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{UserID: userID, CourseID: courseID}

	const q = `
	SELECT user_id, course_id, created_at FROM enrollments
	WHERE user_id = :user_id AND course_id = :course_id`

	var enr Enrollment
	err := database.NamedQueryStruct(ctx, db, q, in, &enr)
	if err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking enrollment: %w", err)
	}

	return true, nil
}

// FetchCourseIDs lists the courses the user is enrolled in.
func FetchCourseIDs(ctx context.Context, db sqlx.ExtContext, userID string) ([]string, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{UserID: userID}

	const q = `
	SELECT user_id, course_id, created_at FROM enrollments
	WHERE user_id = :user_id
	ORDER BY created_at`

	var enrs []Enrollment
	if err := database.NamedQuerySlice(ctx, db, q, in, &enrs); err != nil {
		return nil, fmt.Errorf("fetching enrollments of user[%s]: %w", userID, err)
	}

	ids := make([]string, 0, len(enrs))
	for _, e := range enrs {
		ids = append(ids, e.CourseID)
	}

	return ids, nil
}

// FetchStudentIDs lists the roster of a course.
func FetchStudentIDs(ctx context.Context, db sqlx.ExtContext, courseID string) ([]string, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `
	SELECT user_id, course_id, created_at FROM enrollments
	WHERE course_id = :course_id
	ORDER BY created_at`

	var enrs []Enrollment
	if err := database.NamedQuerySlice(ctx, db, q, in, &enrs); err != nil {
		return nil, fmt.Errorf("fetching roster of course[%s]: %w", courseID, err)
	}

	ids := make([]string, 0, len(enrs))
	for _, e := range enrs {
		ids = append(ids, e.UserID)
	}

	return ids, nil
}
