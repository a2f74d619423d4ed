package module

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, mod Module) error {
	const q = `
	INSERT INTO modules
		(module_id, course_id, title, position, created_at, updated_at)
	VALUES
		(:module_id, :course_id, :title, :position, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, mod); err != nil {
		return fmt.Errorf("inserting module: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, mod Module) error {
	const q = `
	UPDATE modules
	SET
		title = :title,
		position = :position,
		updated_at = :updated_at
	WHERE module_id = :module_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, mod)
	if err != nil {
		return fmt.Errorf("updating module[%s]: %w", mod.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Module, error) {
	in := struct {
		ID string `db:"module_id"`
	}{ID: id}

	const q = `SELECT * FROM modules WHERE module_id = :module_id`

	var m Module
	if err := database.NamedQueryStruct(ctx, db, q, in, &m); err != nil {
		return Module{}, fmt.Errorf("fetching module[%s]: %w", id, err)
	}

	return m, nil
}

// CourseCreator resolves the creator of a course without depending on
// the course package, which itself builds on this one.
func CourseCreator(ctx context.Context, db sqlx.ExtContext, courseID string) (string, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT creator_id FROM courses WHERE course_id = :course_id`

	var out struct {
		CreatorID string `db:"creator_id"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &out); err != nil {
		return "", fmt.Errorf("resolving creator of course[%s]: %w", courseID, err)
	}

	return out.CreatorID, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Module, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT * FROM modules WHERE course_id = :course_id ORDER BY position, created_at`

	ms := []Module{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &ms); err != nil {
		return nil, fmt.Errorf("listing modules of course[%s]: %w", courseID, err)
	}

	return ms, nil
}
