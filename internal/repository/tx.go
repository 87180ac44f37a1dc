package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx runs fn inside a database transaction. Repository methods called
// with the returned context join the same transaction; nested calls reuse it.
func WithTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// conn returns the ambient transaction if one is in flight, else the base
// handle bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// TxRunner satisfies the services' transaction interface over the shared DB.
type TxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, fn)
}
