package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const exchangeKeyPrefix = "sso:exchange:"

// RedisStore is the production ExchangeStore. SET NX gives Put its
// conflict check, GETDEL gives Consume its atomic retrieve-and-delete, and
// the key TTL expires abandoned records server-side.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis at the given URL and verifies the
// connection. A zero TTL means DefaultExchangeTTL.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client. Useful for tests.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultExchangeTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Put implements ExchangeStore.
func (s *RedisStore) Put(ctx context.Context, id string, rec *PendingExchange) error {
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, exchangeKeyPrefix+id, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// Consume implements ExchangeStore.
func (s *RedisStore) Consume(ctx context.Context, id string) (*PendingExchange, error) {
	data, err := s.client.GetDel(ctx, exchangeKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}

	var rec PendingExchange
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exchange record: %w", err)
	}
	return &rec, nil
}

// Client exposes the underlying redis client for health checks.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}
