package progress

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/lecture"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/validate"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		views, err := FetchViews(ctx, db, clm.UserID, courseID)
		if err != nil {
			return err
		}

		sum := Summary{CourseID: courseID, Lectures: views}

		cp, err := FetchCompletion(ctx, db, clm.UserID, courseID)
		if err != nil && !database.IsNoRows(err) {
			return err
		}
		sum.Completed = cp.Completed

		return web.Respond(ctx, w, sum, http.StatusOK)
	}
}

// HandleRecordView marks a lecture as viewed, idempotently. Called on
// every playback start.
func HandleRecordView(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		lectureID := web.Param(r, "lecture_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.BadRequest(err)
		}

		// The lecture must belong to the course in the path.
		owner, err := lecture.CourseID(ctx, db, lectureID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}
		if owner != courseID {
			return weberr.NotFound(errors.New("lecture does not belong to the course"))
		}

		now := time.Now().UTC()
		lp := LectureProgress{
			UserID:    clm.UserID,
			LectureID: lectureID,
			CourseID:  courseID,
			Viewed:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := UpsertView(ctx, db, lp); err != nil {
			return err
		}

		return web.Respond(ctx, w, lp, http.StatusOK)
	}
}

// HandleMarkCompletion flips the manual completion flag. The flag is
// independent of the per-lecture viewed state on purpose.
func HandleMarkCompletion(db *sqlx.DB, completed bool) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		now := time.Now().UTC()
		cp := CourseProgress{
			UserID:    clm.UserID,
			CourseID:  courseID,
			Completed: completed,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := UpsertCompletion(ctx, db, cp); err != nil {
			return err
		}

		return web.Respond(ctx, w, cp, http.StatusOK)
	}
}
