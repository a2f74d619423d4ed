package course

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
	"github.com/learnhub/learnhub/core/enrollment"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/media"
	"github.com/learnhub/learnhub/validate"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		level := cn.Level
		if level == "" {
			level = LevelBeginner
		}

		now := time.Now().UTC()
		c := Course{
			ID:          validate.GenerateID(),
			Title:       cn.Title,
			Subtitle:    cn.Subtitle,
			Description: cn.Description,
			Category:    cn.Category,
			Level:       level,
			Price:       cn.Price,
			CreatorID:   clm.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
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

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		if c.CreatorID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Subtitle != nil {
			c.Subtitle = *cu.Subtitle
		}
		if cu.Description != nil {
			c.Description = *cu.Description
		}
		if cu.Category != nil {
			c.Category = *cu.Category
		}
		if cu.Level != nil {
			c.Level = *cu.Level
		}
		if cu.Price != nil {
			c.Price = *cu.Price
		}
		if cu.Published != nil {
			c.Published = *cu.Published
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

// HandleUpdateThumbnail swaps the course thumbnail, uploading the new
// object first and deleting the replaced one off the request path.
func HandleUpdateThumbnail(db *sqlx.DB, store *media.Client, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		if c.CreatorID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		file, header, err := r.FormFile("thumbnail")
		if err != nil {
			return weberr.BadRequest(errors.New("thumbnail file is required"))
		}
		defer file.Close()

		up, err := store.Upload(ctx, "thumbnails", header.Filename, file)
		if err != nil {
			return err
		}

		oldKey := c.ThumbnailKey
		c.ThumbnailURL = up.URL
		c.ThumbnailKey = up.Key
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			return err
		}

		if oldKey != "" {
			bg.Add(func() error {
				return store.Delete(context.Background(), oldKey)
			})
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		category := web.QueryParam(r, "category")
		search := web.QueryParam(r, "search")

		cs, err := FetchPublished(ctx, db, category, search)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cs, err := FetchByCreator(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		det, err := FetchDetail(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, det, http.StatusOK)
	}
}

func HandleListStudents(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		if c.CreatorID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("not the course creator"))
		}

		ids, err := enrollment.FetchStudentIDs(ctx, db, id)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ids, http.StatusOK)
	}
}

func HandleCreateRating(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "course_id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var rn RatingNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(rn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		rat := Rating{
			CourseID:  id,
			UserID:    clm.UserID,
			Rating:    rn.Rating,
			Comment:   rn.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := UpsertRating(ctx, db, rat); err != nil {
			return err
		}

		return web.Respond(ctx, w, rat, http.StatusCreated)
	}
}
