package sso

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client, time.Minute), mr
}

func TestRedisStore_PutConsume(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	rec := &PendingExchange{
		Kind:     KindDuo,
		Username: "alice",
		Email:    "alice@example.com",
		OrgID:    "org-1",
		Groups:   []string{"dev", "ops"},
	}
	require.NoError(t, store.Put(ctx, "token-1", rec))

	got, err := store.Consume(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, KindDuo, got.Kind)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "org-1", got.OrgID)
	assert.Equal(t, []string{"dev", "ops"}, got.Groups)
}

func TestRedisStore_ConsumeIsSingleUse(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "token-1", &PendingExchange{Kind: KindGoogle}))

	_, err := store.Consume(ctx, "token-1")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "token-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_PutConflict(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "token-1", &PendingExchange{Kind: KindSlack}))
	err := store.Put(ctx, "token-1", &PendingExchange{Kind: KindSlack})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "token-1", &PendingExchange{Kind: KindSAML}))

	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "token-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConsumeUnknown(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.Consume(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
