package course

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/core/lecture"
	"github.com/learnhub/learnhub/core/module"
)

// Detail is a course with its content tree resolved, the shape the
// front end renders on the course page.
type Detail struct {
	Course
	Modules []ModuleDetail `json:"modules"`
	Ratings []Rating       `json:"ratings"`
}

type ModuleDetail struct {
	module.Module
	Lectures []lecture.Lecture `json:"lectures"`
}

// FetchDetail resolves the course, its modules ordered by position and
// the lectures of each module.
func FetchDetail(ctx context.Context, db sqlx.ExtContext, courseID string) (Detail, error) {
	c, err := Fetch(ctx, db, courseID)
	if err != nil {
		return Detail{}, err
	}

	mods, err := module.FetchByCourse(ctx, db, courseID)
	if err != nil {
		return Detail{}, err
	}

	lecs, err := lecture.FetchByCourse(ctx, db, courseID)
	if err != nil {
		return Detail{}, err
	}

	byModule := make(map[string][]lecture.Lecture, len(mods))
	for _, l := range lecs {
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}

	det := Detail{Course: c, Modules: make([]ModuleDetail, 0, len(mods))}
	for _, m := range mods {
		det.Modules = append(det.Modules, ModuleDetail{
			Module:   m,
			Lectures: byModule[m.ID],
		})
	}

	rats, err := FetchRatings(ctx, db, courseID)
	if err != nil {
		return Detail{}, fmt.Errorf("resolving ratings: %w", err)
	}
	det.Ratings = rats

	return det, nil
}
