package user

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, user User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, role, password_hash, photo_url, photo_key, created_at, updated_at)
	VALUES
		(:user_id, :name, :email, :role, :password_hash, :photo_url, :photo_key, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, user); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, user User) error {
	const q = `
	UPDATE users
	SET
		name = :name,
		photo_url = :photo_url,
		photo_key = :photo_key,
		updated_at = :updated_at,
		version = version + 1
	WHERE user_id = :user_id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, db, q, user)
	if err != nil {
		return fmt.Errorf("updating user[%s]: %w", user.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	in := struct {
		ID string `db:"user_id"`
	}{ID: id}

	const q = `SELECT * FROM users WHERE user_id = :user_id`

	var usr User
	if err := database.NamedQueryStruct(ctx, db, q, in, &usr); err != nil {
		return User{}, fmt.Errorf("fetching user[%s]: %w", id, err)
	}

	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	in := struct {
		Email string `db:"email"`
	}{Email: email}

	const q = `SELECT * FROM users WHERE email = :email`

	var usr User
	if err := database.NamedQueryStruct(ctx, db, q, in, &usr); err != nil {
		return User{}, fmt.Errorf("fetching user by email: %w", err)
	}

	return usr, nil
}
