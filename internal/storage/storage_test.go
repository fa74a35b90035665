package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	_, err = store.Get(ctx, "cart_session_id")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "cart_session_id", "sess_abc"))

	v, err := store.Get(ctx, "cart_session_id")
	require.NoError(t, err)
	assert.Equal(t, "sess_abc", v)

	require.NoError(t, store.Delete(ctx, "cart_session_id"))
	_, err = store.Get(ctx, "cart_session_id")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "auth_token", "tok-1"))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v"))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	defer store.Close()

	ctx := context.Background()

	_, err := store.Get(ctx, "cart_session_id")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "cart_session_id", "sess_xyz"))
	v, err := store.Get(ctx, "cart_session_id")
	require.NoError(t, err)
	assert.Equal(t, "sess_xyz", v)

	require.NoError(t, store.Delete(ctx, "cart_session_id"))
	_, err = store.Get(ctx, "cart_session_id")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)

	mr.Close()

	err := store.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}
