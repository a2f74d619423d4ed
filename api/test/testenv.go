package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api"
	"github.com/learnhub/learnhub/api/background"
	"github.com/learnhub/learnhub/config"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/user"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/rate"
	"github.com/learnhub/learnhub/validate"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"golang.org/x/crypto/bcrypt"
)

// TestEnv is a full instance of the service wired to a throwaway
// Postgres container and mock payment gateways. Tests drive it over
// HTTP like a browser would, sharing one cookie jar.
type TestEnv struct {
	URL string
	DB  *sqlx.DB

	Stripe *mockStripe
	Paypal *mockPaypal

	WebhookSecret string

	CreatorEmail string
	CreatorPass  string
	StudentEmail string
	StudentPass  string

	client *http.Client
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	res, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() { pool.Purge(res) })

	db, err := database.Open(config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       res.GetHostPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.StatusCheck(ctx, db); err != nil {
		return nil, fmt.Errorf("waiting for database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		Stripe:        &mockStripe{},
		Paypal:        &mockPaypal{},
		WebhookSecret: "whsec_" + name,
		CreatorEmail:  "creator@test.com",
		CreatorPass:   "creatorpass",
		StudentEmail:  "student@test.com",
		StudentPass:   "studentpass",
	}

	if err := seedUser(ctx, db, "Test Creator", env.CreatorEmail, env.CreatorPass); err != nil {
		return nil, err
	}
	if err := seedUser(ctx, db, "Test Student", env.StudentEmail, env.StudentPass); err != nil {
		return nil, err
	}

	stripeSrv := httptest.NewServer(env.Stripe.handler())
	t.Cleanup(stripeSrv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_key", &stripe.Backends{API: backend})

	paypalSrv := httptest.NewServer(env.Paypal.handler())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("test-client", "test-secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("fetching paypal token: %w", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	session := scs.New()
	session.Lifetime = 24 * time.Hour

	mux := api.APIMux(api.APIConfig{
		Log:        log,
		DB:         db,
		Session:    session,
		Background: background.New(log),
		Paypal:     pp,
		Stripe:     strp,
		StripeCfg: config.Stripe{
			APISecret:      "sk_test_key",
			WebhookSecret:  env.WebhookSecret,
			RequestTimeout: 5 * time.Second,
		},
		Client:  config.Client{URL: "http://localhost:3000"},
		Limiter: rate.NewLimiter(1000, 30, 1000),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	env.URL = srv.URL

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}
	env.client = &http.Client{Jar: jar}

	return env, nil
}

func seedUser(ctx context.Context, db *sqlx.DB, name string, email string, pass string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hashing password of %s: %w", email, err)
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		Role:         claims.RoleUser,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(ctx, db, usr); err != nil {
		return fmt.Errorf("seeding user %s: %w", email, err)
	}

	return nil
}

// Client returns the HTTP client of the environment. All requests share
// the same cookie jar, so the session survives across calls.
func (env *TestEnv) Client() *http.Client {
	return env.client
}

func (env *TestEnv) Login(email string, pass string) error {
	creds := map[string]string{"email": email, "password": pass}

	w, err := env.postJSON("/auth/login", creds)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login of %s: status code %s", email, w.Status)
	}

	return nil
}

func (env *TestEnv) Logout() error {
	w, err := env.postJSON("/auth/logout", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout: status code %s", w.Status)
	}

	return nil
}

func (env *TestEnv) postJSON(path string, body any) (*http.Response, error) {
	return env.sendJSON(http.MethodPost, path, body)
}

func (env *TestEnv) putJSON(path string, body any) (*http.Response, error) {
	return env.sendJSON(http.MethodPut, path, body)
}

func (env *TestEnv) sendJSON(method string, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	r, err := http.NewRequest(method, env.URL+path, &buf)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")

	return env.client.Do(r)
}

// getJSON fetches the path and decodes the body into out when the
// status code matches.
func (env *TestEnv) getJSON(path string, want int, out any) error {
	w, err := env.client.Get(env.URL + path)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		return fmt.Errorf("GET %s: status code %s", path, w.Status)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(w.Body).Decode(out)
}
