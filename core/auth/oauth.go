package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/user"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/random"
	"github.com/learnhub/learnhub/validate"
	"golang.org/x/oauth2"
)

const stateKey = "oauth_state"

type Provider struct {
	conf     *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

// MakeProviders discovers the OIDC endpoints of the configured
// providers. Discovery is bound by the passed context.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))
	for _, cfg := range cfgs {
		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider[%s]: %w", cfg.Name, err)
		}

		provs[cfg.Name] = Provider{
			conf: &oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				RedirectURL:  cfg.RedirectURL,
				Endpoint:     p.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
		}
	}

	return provs, nil
}

func HandleOauthLogin(session *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := provs[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		session.Put(ctx, stateKey, state)

		http.Redirect(w, r, prov.conf.AuthCodeURL(state), http.StatusTemporaryRedirect)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := provs[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := session.PopString(ctx, stateKey)
		if state == "" || state != web.QueryParam(r, "state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := prov.conf.Exchange(ctx, web.QueryParam(r, "code"))
		if err != nil {
			return fmt.Errorf("exchanging oauth code: %w", err)
		}

		rawID, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("token response misses the id_token"))
		}

		idTok, err := prov.verifier.Verify(ctx, rawID)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id_token: %w", err))
		}

		var profile struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := idTok.Claims(&profile); err != nil {
			return fmt.Errorf("decoding id_token claims: %w", err)
		}

		usr, err := user.FetchByEmail(ctx, db, profile.Email)
		if err != nil {
			if !database.IsNoRows(err) {
				return err
			}

			now := time.Now().UTC()
			usr = user.User{
				ID:           validate.GenerateID(),
				Name:         profile.Name,
				Email:        profile.Email,
				Role:         claims.RoleUser,
				PasswordHash: []byte{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			if err := user.Create(ctx, db, usr); err != nil {
				return fmt.Errorf("creating oauth user: %w", err)
			}
		}

		if err := login(ctx, session, usr.ID, usr.Role); err != nil {
			return fmt.Errorf("opening session: %w", err)
		}

		http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
		return nil
	}
}
