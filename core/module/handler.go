package module

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/validate"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var mn ModuleNew
		if err := web.Decode(w, r, &mn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(mn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		creator, err := CourseCreator(ctx, db, mn.CourseID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		if creator != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		now := time.Now().UTC()
		m := Module{
			ID:        validate.GenerateID(),
			CourseID:  mn.CourseID,
			Title:     mn.Title,
			Position:  mn.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, m); err != nil {
			return err
		}

		return web.Respond(ctx, w, m, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var mu ModuleUp
		if err := web.Decode(w, r, &mu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(mu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		m, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		creator, err := CourseCreator(ctx, db, m.CourseID)
		if err != nil {
			return err
		}

		if creator != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		if mu.Title != nil {
			m.Title = *mu.Title
		}
		if mu.Position != nil {
			m.Position = *mu.Position
		}
		m.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, m); err != nil {
			return err
		}

		return web.Respond(ctx, w, m, http.StatusOK)
	}
}

func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		ms, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ms, http.StatusOK)
	}
}
