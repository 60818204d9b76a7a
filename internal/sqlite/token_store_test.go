package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rpggio/chemviz/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_SetGetDelete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewTokenStore(db)

	_, err := store.Get(ctx, "authToken")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Set(ctx, "authToken", "abc123"))
	value, err := store.Get(ctx, "authToken")
	require.NoError(t, err)
	require.Equal(t, "abc123", value)

	require.NoError(t, store.Set(ctx, "authToken", "def456"))
	value, err = store.Get(ctx, "authToken")
	require.NoError(t, err)
	require.Equal(t, "def456", value)

	require.NoError(t, store.Delete(ctx, "authToken"))
	_, err = store.Get(ctx, "authToken")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "authToken"))
}

func TestTokenStore_EmptyKey(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewTokenStore(db)

	_, err := store.Get(ctx, "")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	require.ErrorIs(t, store.Set(ctx, "", "x"), repository.ErrInvalidInput)
	require.ErrorIs(t, store.Delete(ctx, ""), repository.ErrInvalidInput)
}

func TestTokenStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	require.NoError(t, NewTokenStore(db).Set(ctx, "authToken", "abc123"))
	require.NoError(t, db.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })
	require.NoError(t, reopened.RunMigrations())

	value, err := NewTokenStore(reopened).Get(ctx, "authToken")
	require.NoError(t, err)
	require.Equal(t, "abc123", value)
}

func TestTokenStore_MissingSchema(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = NewTokenStore(db).Get(context.Background(), "authToken")
	require.Error(t, err)
	require.NotErrorIs(t, err, repository.ErrNotFound)
}
