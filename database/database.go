package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/config"
	_ "github.com/lib/pq"
)

func Open(cfg config.DB) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	return sqlx.Open("postgres", u.String())
}

// StatusCheck waits for the database to be reachable, bound by the
// passed context. Attempts back off linearly.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var pingError error
	for attempts := 1; ; attempts++ {
		pingError = db.PingContext(ctx)
		if pingError == nil {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready: %w", pingError)
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	const q = `SELECT true`
	var ok bool
	return db.QueryRowContext(ctx, q).Scan(&ok)
}

// Transaction runs the passed function inside a database transaction,
// committing on success and rolling back on error or panic.
func Transaction(db *sqlx.DB, fn func(sqlx.ExtContext) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	mustRollback := true
	defer func() {
		if mustRollback {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	mustRollback = false
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
