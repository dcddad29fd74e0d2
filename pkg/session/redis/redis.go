package redis

import (
	"context"
	"fmt"
	"time"

	"cashdesk/pkg/session"

	"github.com/redis/rueidis"
)

// RedisStore is a Redis-backed session store. It carries session identifiers
// across workstation restarts and lets a teller resume an open drawer from a
// different terminal behind the same agency.
type RedisStore struct {
	client rueidis.Client
	name   string
	config RedisStoreConfig
}

// RedisStoreConfig holds configuration for the Redis store.
type RedisStoreConfig struct {
	Name string
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr     string
	Username string
	Password string
	// DB is the Redis database number (0-15).
	DB int
	// KeyPrefix is prepended to every key.
	KeyPrefix string
	// TTL is applied to every stored key. Zero stores keys without expiry.
	TTL          time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisStoreConfig returns sensible defaults. Keys expire after 24
// hours so an abandoned session does not outlive the accounting day.
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Name:         "redis",
		Addr:         "localhost:6379",
		KeyPrefix:    "cashdesk:",
		TTL:          24 * time.Hour,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisStore creates a Redis store and verifies connectivity with a ping.
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	if config.Name == "" {
		config.Name = "redis"
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{config.Addr},
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &RedisStore{
		client: client,
		name:   config.Name,
		config: config,
	}, nil
}

// Get retrieves the value for a key.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if err := session.ValidateKey(key); err != nil {
		return "", err
	}

	cmd := r.client.B().Get().Key(r.config.KeyPrefix + key).Build()
	resp := r.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return "", session.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}

	value, err := resp.ToString()
	if err != nil {
		return "", fmt.Errorf("redis get: failed to read response: %w", err)
	}

	return value, nil
}

// Set stores a value under a key, applying the configured TTL.
func (r *RedisStore) Set(ctx context.Context, key string, value string) error {
	if err := session.ValidateKey(key); err != nil {
		return err
	}

	fullKey := r.config.KeyPrefix + key

	var cmd rueidis.Completed
	if r.config.TTL > 0 {
		cmd = r.client.B().Set().Key(fullKey).Value(value).Ex(r.config.TTL).Build()
	} else {
		cmd = r.client.B().Set().Key(fullKey).Value(value).Build()
	}

	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := session.ValidateKey(key); err != nil {
		return err
	}

	cmd := r.client.B().Del().Key(r.config.KeyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}

	return nil
}

// DeleteAll removes every listed key in a single round trip.
func (r *RedisStore) DeleteAll(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		if err := session.ValidateKey(key); err != nil {
			return err
		}
		fullKeys[i] = r.config.KeyPrefix + key
	}

	cmd := r.client.B().Del().Key(fullKeys...).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis delete all: %w", err)
	}

	return nil
}

// Name returns the store identifier.
func (r *RedisStore) Name() string {
	return r.name
}

// Ping verifies connectivity to the Redis server.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}
