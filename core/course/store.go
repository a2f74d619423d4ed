package course

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, course Course) error {
	const q = `
	INSERT INTO courses
		(course_id, title, subtitle, description, category, level, price,
		thumbnail_url, thumbnail_key, creator_id, published, created_at, updated_at)
	VALUES
		(:course_id, :title, :subtitle, :description, :category, :level, :price,
		:thumbnail_url, :thumbnail_key, :creator_id, :published, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, course); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, course Course) error {
	const q = `
	UPDATE courses
	SET
		title = :title,
		subtitle = :subtitle,
		description = :description,
		category = :category,
		level = :level,
		price = :price,
		thumbnail_url = :thumbnail_url,
		thumbnail_key = :thumbnail_key,
		published = :published,
		updated_at = :updated_at,
		version = version + 1
	WHERE course_id = :course_id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, db, q, course)
	if err != nil {
		return fmt.Errorf("updating course[%s]: %w", course.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	in := struct {
		ID string `db:"course_id"`
	}{ID: id}

	const q = `SELECT * FROM courses WHERE course_id = :course_id`

	var c Course
	if err := database.NamedQueryStruct(ctx, db, q, in, &c); err != nil {
		return Course{}, fmt.Errorf("fetching course[%s]: %w", id, err)
	}

	return c, nil
}

// FetchPublished lists browsable courses, optionally narrowed by
// category and a title substring. Unpublished courses never appear.
func FetchPublished(ctx context.Context, db sqlx.ExtContext, category string, search string) ([]Course, error) {
	in := struct {
		Category string `db:"category"`
		Search   string `db:"search"`
	}{Category: category, Search: search}

	const q = `
	SELECT * FROM courses
	WHERE published = TRUE
		AND (:category = '' OR category = :category)
		AND (:search = '' OR title ILIKE '%' || :search || '%')
	ORDER BY created_at DESC`

	cs := []Course{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &cs); err != nil {
		return nil, fmt.Errorf("listing published courses: %w", err)
	}

	return cs, nil
}

func FetchByCreator(ctx context.Context, db sqlx.ExtContext, creatorID string) ([]Course, error) {
	in := struct {
		CreatorID string `db:"creator_id"`
	}{CreatorID: creatorID}

	const q = `SELECT * FROM courses WHERE creator_id = :creator_id ORDER BY created_at DESC`

	cs := []Course{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &cs); err != nil {
		return nil, fmt.Errorf("listing courses of creator[%s]: %w", creatorID, err)
	}

	return cs, nil
}

func FetchByIDs(ctx context.Context, db sqlx.ExtContext, ids []string) ([]Course, error) {
	if len(ids) == 0 {
		return []Course{}, nil
	}

	q, args, err := sqlx.In(`SELECT * FROM courses WHERE course_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("building courses query: %w", err)
	}
	q = db.Rebind(q)

	cs := []Course{}
	if err := sqlx.SelectContext(ctx, db, &cs, q, args...); err != nil {
		return nil, fmt.Errorf("listing courses by ids: %w", err)
	}

	return cs, nil
}

// UpsertRating stores the caller's rating, replacing a previous one.
func UpsertRating(ctx context.Context, db sqlx.ExtContext, rating Rating) error {
	const q = `
	INSERT INTO course_ratings
		(course_id, user_id, rating, comment, created_at, updated_at)
	VALUES
		(:course_id, :user_id, :rating, :comment, :created_at, :updated_at)
	ON CONFLICT (course_id, user_id) DO UPDATE
	SET rating = :rating, comment = :comment, updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, rating); err != nil {
		return fmt.Errorf("upserting rating: %w", err)
	}

	return nil
}

func FetchRatings(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Rating, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT * FROM course_ratings WHERE course_id = :course_id ORDER BY created_at`

	rs := []Rating{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &rs); err != nil {
		return nil, fmt.Errorf("listing ratings of course[%s]: %w", courseID, err)
	}

	return rs, nil
}
