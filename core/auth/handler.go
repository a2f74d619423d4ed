package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/user"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/validate"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleSignup(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var us user.UserSignup
		if err := web.Decode(w, r, &us); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(us); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(us.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		usr := user.User{
			ID:           validate.GenerateID(),
			Name:         us.Name,
			Email:        us.Email,
			Role:         claims.RoleUser,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, usr); err != nil {
			var pqerr *pq.Error
			if errors.As(err, &pqerr) && pqerr.Code.Name() == "unique_violation" {
				dup := errors.New("user already exists with this email")
				return weberr.NewError(dup, dup.Error(), http.StatusConflict)
			}
			return err
		}

		if err := login(ctx, session, usr.ID, usr.Role); err != nil {
			return fmt.Errorf("opening session: %w", err)
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var creds credentials
		if err := web.Decode(w, r, &creds); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(creds); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, creds.Email)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotAuthorized(errors.New("invalid credentials"))
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(creds.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("invalid credentials"))
		}

		if err := login(ctx, session, usr.ID, usr.Role); err != nil {
			return fmt.Errorf("opening session: %w", err)
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
