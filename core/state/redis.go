package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "nowkit:state:"

// RedisStore implements Store on top of Redis.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL sets an expiration for stored state. Zero means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a Store backed by a new Redis client.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient creates a Store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(app, user, key string) string {
	return s.prefix + app + ":" + user + ":" + key
}

// Get returns the stored value, or the empty string when absent.
func (s *RedisStore) Get(ctx context.Context, app, user, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(app, user, key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Save stores the value, overwriting any previous one.
func (s *RedisStore) Save(ctx context.Context, app, user, key, value string) error {
	if value == "" {
		return s.Remove(ctx, app, user, key)
	}
	if err := s.client.Set(ctx, s.key(app, user, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Remove deletes the value if present.
func (s *RedisStore) Remove(ctx context.Context, app, user, key string) error {
	if err := s.client.Del(ctx, s.key(app, user, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
