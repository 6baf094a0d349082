// Package dbx holds the database/sql glue the record repositories share:
// DBTX, satisfied by both *sql.DB and *sql.Tx, and WithTx.
package dbx

import (
	"context"
	"database/sql"
	"errors"
)

// DBTX is the part of database/sql the repositories call.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrRollback may be returned by a WithTx callback to discard the
// transaction without reporting a failure.
var ErrRollback = errors.New("dbx: rollback requested")

// WithTx runs fn inside a transaction on db. The transaction commits when fn
// returns nil and rolls back on any error or panic; panics are re-raised.
// A callback returning ErrRollback makes WithTx return nil.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    row, err := repo(tx).GetForUpdate(ctx, key)
//	    ...
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			if errors.Is(err, ErrRollback) {
				err = nil
			}
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
