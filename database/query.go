package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by the query helpers when no row matches.
var ErrNotFound = errors.New("not found")

func NamedQueryStruct(ctx context.Context, db sqlx.ExtContext, query string, arg any, dest any) error {
	rows, err := sqlx.NamedQueryContext(ctx, db, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNotFound
	}

	return rows.StructScan(dest)
}

func NamedQuerySlice[T any](ctx context.Context, db sqlx.ExtContext, query string, arg any, dest *[]T) error {
	rows, err := sqlx.NamedQueryContext(ctx, db, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v T
		if err := rows.StructScan(&v); err != nil {
			return err
		}
		*dest = append(*dest, v)
	}

	return rows.Err()
}

// IsNoRows reports whether the error means an absent row, regardless
// of which layer produced it.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
