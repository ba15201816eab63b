package sqlite_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/dinein/internal/devicestore"
	"github.com/aussiebroadwan/dinein/internal/devicestore/drivers/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(t.Context()))
}

func TestKV(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	kv := s.KV()
	ctx := t.Context()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, devicestore.ErrNotFound)

	require.NoError(t, kv.Put(ctx, "dinein.auth.a", []byte("1")))
	require.NoError(t, kv.Put(ctx, "dinein.auth.b", []byte("2")))
	require.NoError(t, kv.Put(ctx, "dinein.prefs.c", []byte("3")))

	// overwritten in place
	require.NoError(t, kv.Put(ctx, "dinein.auth.a", []byte("one")))
	v, err := kv.Get(ctx, "dinein.auth.a")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), v)

	got, err := kv.List(ctx, "dinein.auth.")
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{
		"dinein.auth.a": []byte("one"),
		"dinein.auth.b": []byte("2"),
	}, got)

	require.NoError(t, kv.Delete(ctx, "dinein.auth.a", "dinein.auth.b", "never-set"))
	got, err = kv.List(ctx, "dinein.")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, kv.Delete(ctx))
}

func TestKVEmptyValue(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	require.NoError(t, s.KV().Put(t.Context(), "k", nil))

	v, err := s.KV().Get(t.Context(), "k")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestWithTx(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := t.Context()

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx devicestore.Tx) error {
			require.NoError(t, tx.KV().Put(ctx, "tx.rolled", []byte("x")))
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.KV().Get(ctx, "tx.rolled")
		require.ErrorIs(t, err, devicestore.ErrNotFound)
	})

	t.Run("commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx devicestore.Tx) error {
			return tx.KV().Put(ctx, "tx.committed", []byte("y"))
		})
		require.NoError(t, err)

		v, err := s.KV().Get(ctx, "tx.committed")
		require.NoError(t, err)
		require.Equal(t, []byte("y"), v)
	})

	t.Run("no nesting", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx devicestore.Tx) error {
			return tx.WithTx(ctx, func(devicestore.Tx) error { return nil })
		})
		require.Error(t, err)
	})
}

func TestDataSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "device.db")

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.KV().Put(t.Context(), "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations())

	v, err := s.KV().Get(t.Context(), "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}
