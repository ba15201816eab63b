package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/dinein/internal/devicestore"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller will commit/rollback and outer DB stays open

// Ping is a no-op for transactions; the connection is already established.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (devicestore.Tx, error) {
	// Nested tx not supported
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx devicestore.Tx) error) error {
	// Nested tx not supported
	return sql.ErrTxDone
}

func (t *txStore) KV() devicestore.KV { return &kvRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations are applied before starting a tx
