package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// LoadAndSave adapts the scs session middleware to the web.Handler
// chain. It must run before any middleware touching the session.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})

			session.LoadAndSave(hf).ServeHTTP(w, r)
			return err
		}
		return h
	}
	return m
}

// Authenticate rejects requests without a logged-in session and puts
// the session's claims on the context for downstream handlers.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(ctx, userIDKey)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Role:   session.GetString(ctx, roleKey),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin allows only sessions holding the admin role.
func Admin(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(ctx, userIDKey)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			role := session.GetString(ctx, roleKey)
			if role != claims.RoleAdmin {
				return weberr.NotAuthorized(errors.New("user is not an admin"))
			}

			clm := claims.Claims{UserID: userID, Role: role}
			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func login(ctx context.Context, session *scs.SessionManager, userID string, role string) error {
	if err := session.RenewToken(ctx); err != nil {
		return err
	}

	session.Put(ctx, userIDKey, userID)
	session.Put(ctx, roleKey, role)
	return nil
}
