package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// InTx runs fn inside a transaction. Repositories called with the context
// passed to fn use the transaction through Ext.
//
// Usage in services:
//
//	err := db.InTx(ctx, func(ctx context.Context) error {
//	    if err := leads.Create(ctx, lead); err != nil { return err }
//	    return leads.RecordDocuments(ctx, lead.ID, docs)
//	})
func (db *DB) InTx(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Ext returns the transaction stored in ctx by InTx, or the pool
func (db *DB) Ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.DB
}
