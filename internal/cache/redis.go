package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces every key the RedisStore writes.
const DefaultKeyPrefix = "github-insights:"

// RedisStore is a Store shared between processes through Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// redisEnvelope is the JSON document stored under each key.
type redisEnvelope struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewRedisStore connects to the Redis server at redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
}

// Get returns the live entry for key, or nil.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt data is dropped and treated as a miss.
		s.client.Del(ctx, s.prefix+key)
		return nil, nil
	}

	ent := &Entry{
		Key:       key,
		Value:     env.Value,
		FetchedAt: env.FetchedAt,
		ExpiresAt: env.ExpiresAt,
	}
	if ent.Expired(s.now()) {
		s.client.Del(ctx, s.prefix+key)
		return nil, nil
	}
	return ent, nil
}

// Set stores value under key with a native Redis expiry of ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, fetchedAt time.Time, ttl time.Duration) error {
	data, err := json.Marshal(redisEnvelope{
		Value:     value,
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
