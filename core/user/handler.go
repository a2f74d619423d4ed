package user

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/background"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/course"
	"github.com/learnhub/learnhub/core/enrollment"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/media"
)

// Profile is the current-user view: the account plus the courses the
// user is enrolled in, resolved from the enrollment table.
type Profile struct {
	User
	EnrolledCourses []course.Course `json:"enrolledCourses"`
}

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		ids, err := enrollment.FetchCourseIDs(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		cs, err := course.FetchByIDs(ctx, db, ids)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, Profile{User: usr, EnrolledCourses: cs}, http.StatusOK)
	}
}

// HandleUpdateCurrent updates the profile name and/or photo. The photo
// arrives as a multipart file; the replaced object is deleted off the
// request path.
func HandleUpdateCurrent(db *sqlx.DB, store *media.Client, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		name := r.FormValue("name")
		file, header, ferr := r.FormFile("photo")

		if name == "" && ferr != nil {
			return weberr.BadRequest(errors.New("at least one of name or photo is required"))
		}

		if name != "" {
			usr.Name = name
		}

		oldKey := ""
		if ferr == nil {
			defer file.Close()

			up, err := store.Upload(ctx, "photos", header.Filename, file)
			if err != nil {
				return err
			}

			oldKey = usr.PhotoKey
			usr.PhotoURL = up.URL
			usr.PhotoKey = up.Key
		}

		usr.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, usr); err != nil {
			return err
		}

		if oldKey != "" {
			bg.Add(func() error {
				return store.Delete(context.Background(), oldKey)
			})
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}
