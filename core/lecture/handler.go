package lecture

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/background"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/enrollment"
	"github.com/learnhub/learnhub/core/module"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/media"
	"github.com/learnhub/learnhub/validate"
)

// HandleCreate accepts a multipart form: the lecture fields plus the
// media file under "media".
func HandleCreate(db *sqlx.DB, store *media.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ln := LectureNew{
			ModuleID:  r.FormValue("moduleId"),
			Title:     r.FormValue("title"),
			MediaType: r.FormValue("mediaType"),
			Free:      r.FormValue("free") == "true",
		}
		if p := r.FormValue("position"); p != "" {
			pos, err := strconv.Atoi(p)
			if err != nil {
				return weberr.BadRequest(errors.New("position is not a number"))
			}
			ln.Position = pos
		}

		if err := validate.Check(ln); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		mod, err := module.Fetch(ctx, db, ln.ModuleID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		creator, err := module.CourseCreator(ctx, db, mod.CourseID)
		if err != nil {
			return err
		}

		if creator != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		now := time.Now().UTC()
		lec := Lecture{
			ID:        validate.GenerateID(),
			ModuleID:  ln.ModuleID,
			Title:     ln.Title,
			MediaType: ln.MediaType,
			Free:      ln.Free,
			Position:  ln.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if file, header, err := r.FormFile("media"); err == nil {
			defer file.Close()

			up, err := store.Upload(ctx, "lectures", header.Filename, file)
			if err != nil {
				return err
			}
			lec.MediaURL = up.URL
			lec.MediaKey = up.Key
		}

		if err := Create(ctx, db, lec); err != nil {
			return err
		}

		return web.Respond(ctx, w, lec, http.StatusCreated)
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

		var lu LectureUp
		if err := web.Decode(w, r, &lu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(lu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		lec, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		courseID, err := CourseID(ctx, db, id)
		if err != nil {
			return err
		}

		creator, err := module.CourseCreator(ctx, db, courseID)
		if err != nil {
			return err
		}

		if creator != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		if lu.Title != nil {
			lec.Title = *lu.Title
		}
		if lu.MediaType != nil {
			lec.MediaType = *lu.MediaType
		}
		if lu.Free != nil {
			lec.Free = *lu.Free
		}
		if lu.Position != nil {
			lec.Position = *lu.Position
		}
		lec.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, lec); err != nil {
			return err
		}

		return web.Respond(ctx, w, lec, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB, store *media.Client, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		lec, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		courseID, err := CourseID(ctx, db, id)
		if err != nil {
			return err
		}

		creator, err := module.CourseCreator(ctx, db, courseID)
		if err != nil {
			return err
		}

		if creator != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		if err := Delete(ctx, db, id); err != nil {
			return err
		}

		if lec.MediaKey != "" {
			bg.Add(func() error {
				return store.Delete(context.Background(), lec.MediaKey)
			})
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleShowContent serves the media URL of a lecture. Free previews
// are open; everything else requires an entitlement or being the
// course creator. Global visibility is never mutated by purchases.
func HandleShowContent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		lec, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !lec.Free {
			courseID, err := CourseID(ctx, db, id)
			if err != nil {
				return err
			}

			enrolled, err := enrollment.Exists(ctx, db, clm.UserID, courseID)
			if err != nil {
				return err
			}

			if !enrolled {
				creator, err := module.CourseCreator(ctx, db, courseID)
				if err != nil {
					return err
				}
				if creator != clm.UserID && !claims.IsAdmin(ctx) {
					return weberr.NotAuthorized(errors.New("course not purchased"))
				}
			}
		}

		content := Content{
			LectureID: lec.ID,
			MediaType: lec.MediaType,
			MediaURL:  lec.MediaURL,
		}

		return web.Respond(ctx, w, content, http.StatusOK)
	}
}
