package lecture

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, lec Lecture) error {
	const q = `
	INSERT INTO lectures
		(lecture_id, module_id, title, media_type, media_url, media_key, free, position, created_at, updated_at)
	VALUES
		(:lecture_id, :module_id, :title, :media_type, :media_url, :media_key, :free, :position, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, lec); err != nil {
		return fmt.Errorf("inserting lecture: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, lec Lecture) error {
	const q = `
	UPDATE lectures
	SET
		title = :title,
		media_type = :media_type,
		media_url = :media_url,
		media_key = :media_key,
		free = :free,
		position = :position,
		updated_at = :updated_at
	WHERE lecture_id = :lecture_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, lec)
	if err != nil {
		return fmt.Errorf("updating lecture[%s]: %w", lec.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"lecture_id"`
	}{ID: id}

	const q = `DELETE FROM lectures WHERE lecture_id = :lecture_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting lecture[%s]: %w", id, err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Lecture, error) {
	in := struct {
		ID string `db:"lecture_id"`
	}{ID: id}

	const q = `SELECT * FROM lectures WHERE lecture_id = :lecture_id`

	var l Lecture
	if err := database.NamedQueryStruct(ctx, db, q, in, &l); err != nil {
		return Lecture{}, fmt.Errorf("fetching lecture[%s]: %w", id, err)
	}

	return l, nil
}

func FetchByModule(ctx context.Context, db sqlx.ExtContext, moduleID string) ([]Lecture, error) {
	in := struct {
		ModuleID string `db:"module_id"`
	}{ModuleID: moduleID}

	const q = `SELECT * FROM lectures WHERE module_id = :module_id ORDER BY position, created_at`

	ls := []Lecture{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &ls); err != nil {
		return nil, fmt.Errorf("listing lectures of module[%s]: %w", moduleID, err)
	}

	return ls, nil
}

// FetchByCourse resolves the whole content tree of a course in one
// query, ordered module-first.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lecture, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `
	SELECT l.* FROM lectures AS l
	JOIN modules AS m ON m.module_id = l.module_id
	WHERE m.course_id = :course_id
	ORDER BY m.position, l.position, l.created_at`

	ls := []Lecture{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &ls); err != nil {
		return nil, fmt.Errorf("listing lectures of course[%s]: %w", courseID, err)
	}

	return ls, nil
}

// CourseID walks a lecture up to its owning course.
func CourseID(ctx context.Context, db sqlx.ExtContext, lectureID string) (string, error) {
	in := struct {
		ID string `db:"lecture_id"`
	}{ID: lectureID}

	const q = `
	SELECT m.course_id AS course_id FROM lectures AS l
	JOIN modules AS m ON m.module_id = l.module_id
	WHERE l.lecture_id = :lecture_id`

	var out struct {
		CourseID string `db:"course_id"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &out); err != nil {
		return "", fmt.Errorf("resolving course of lecture[%s]: %w", lectureID, err)
	}

	return out.CourseID, nil
}
