package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx. Repository methods take
// one explicitly so the caller decides which statements share a transaction.
type Queryer = sqlx.ExtContext

// TxRunner opens database transactions.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner creates a TxRunner over db.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// WithTx runs fn inside a single transaction. The transaction commits only if
// fn returns nil; any error, panic or context cancellation rolls it back.
func (r *TxRunner) WithTx(ctx context.Context, fn func(tx Queryer) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("transaction rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DB exposes the underlying pool for reads outside a transaction.
func (r *TxRunner) DB() Queryer {
	return r.db
}
