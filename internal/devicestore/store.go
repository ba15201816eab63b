package devicestore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("devicestore: not found")

// Store is the device-local key-value storage. Values are opaque bytes and
// overwritten in place; there is no versioning of individual values.
type Store interface {
	KV() KV

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type KV interface {
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put inserts or overwrites key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
