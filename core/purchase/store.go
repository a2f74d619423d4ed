package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, pur Purchase) error {
	const q = `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount, status, method, provider_id, course_name, created_at, updated_at)
	VALUES
		(:purchase_id, :user_id, :course_id, :amount, :status, :method, :provider_id, :course_name, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, pur); err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Purchase, error) {
	in := struct {
		ID string `db:"purchase_id"`
	}{ID: id}

	const q = `SELECT * FROM purchases WHERE purchase_id = :purchase_id`

	var p Purchase
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Purchase{}, fmt.Errorf("fetching purchase[%s]: %w", id, err)
	}

	return p, nil
}

// FetchByProviderID looks a purchase up by the gateway session/order
// id persisted at checkout time.
func FetchByProviderID(ctx context.Context, db sqlx.ExtContext, providerID string) (Purchase, error) {
	in := struct {
		ProviderID string `db:"provider_id"`
	}{ProviderID: providerID}

	const q = `SELECT * FROM purchases WHERE provider_id = :provider_id`

	var p Purchase
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		return Purchase{}, fmt.Errorf("fetching purchase bound to payment[%s]: %w", providerID, err)
	}

	return p, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Purchase, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{UserID: userID}

	const q = `SELECT * FROM purchases WHERE user_id = :user_id ORDER BY created_at DESC`

	ps := []Purchase{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &ps); err != nil {
		return nil, fmt.Errorf("listing purchases of user[%s]: %w", userID, err)
	}

	return ps, nil
}

// Complete transitions Pending to Completed and records the amount the
// gateway reported. The status guard makes duplicate notifications and
// concurrent deliveries a no-op: only one update can win the row.
func Complete(ctx context.Context, db sqlx.ExtContext, purchaseID string, amount int) (bool, error) {
	in := struct {
		ID        string    `db:"purchase_id"`
		Amount    int       `db:"amount"`
		UpdatedAt time.Time `db:"updated_at"`
	}{ID: purchaseID, Amount: amount, UpdatedAt: time.Now().UTC()}

	const q = `
	UPDATE purchases
	SET status = 'Completed', amount = :amount, updated_at = :updated_at
	WHERE purchase_id = :purchase_id AND status = 'Pending'`

	res, err := sqlx.NamedExecContext(ctx, db, q, in)
	if err != nil {
		return false, fmt.Errorf("completing purchase[%s]: %w", purchaseID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("completing purchase[%s]: %w", purchaseID, err)
	}

	return n == 1, nil
}

// SetProviderID binds the gateway session to the pending purchase.
func SetProviderID(ctx context.Context, db sqlx.ExtContext, purchaseID string, providerID string) error {
	in := struct {
		ID         string    `db:"purchase_id"`
		ProviderID string    `db:"provider_id"`
		UpdatedAt  time.Time `db:"updated_at"`
	}{ID: purchaseID, ProviderID: providerID, UpdatedAt: time.Now().UTC()}

	const q = `
	UPDATE purchases
	SET provider_id = :provider_id, updated_at = :updated_at
	WHERE purchase_id = :purchase_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("binding purchase[%s] to payment[%s]: %w", purchaseID, providerID, err)
	}

	return nil
}

// ExistsCompleted reports whether the user already holds a completed
// purchase of the course.
func ExistsCompleted(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{UserID: userID, CourseID: courseID}

	const q = `
	SELECT * FROM purchases
	WHERE user_id = :user_id AND course_id = :course_id AND status = 'Completed'
	LIMIT 1`

	var p Purchase
	err := database.NamedQueryStruct(ctx, db, q, in, &p)
	if err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking completed purchase: %w", err)
	}

	return true, nil
}
