// Package redis implements the revocation store on Redis. Entries carry a
// TTL equal to the token's remaining lifetime, so expired revocations
// vanish without a sweeper.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/observability"
	"github.com/walletvault/walletvault/pkg/storage"
)

const keyPrefix = "walletvault:revoked:"

// RevocationStore records revoked tokens as TTL'd Redis keys.
type RevocationStore struct {
	client  *redis.Client
	metrics *observability.Metrics
}

// StoreOption customizes a RevocationStore
type StoreOption func(*RevocationStore)

// WithMetrics records per-operation counters and latencies
func WithMetrics(metrics *observability.Metrics) StoreOption {
	return func(s *RevocationStore) { s.metrics = metrics }
}

// Connect creates a Redis client from the config and verifies it with a
// ping.
func Connect(ctx context.Context, cfg storage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		opts.DB = cfg.RedisDB
	}
	opts.MaxRetries = cfg.RedisMaxRetries
	opts.PoolSize = cfg.RedisPoolSize

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRevocationStore creates a revocation store over an open client.
func NewRevocationStore(client *redis.Client, opts ...StoreOption) *RevocationStore {
	s := &RevocationStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client for health checks
func (s *RevocationStore) Client() *redis.Client {
	return s.client
}

func (s *RevocationStore) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveStorageOperation(operation, "redis", status, time.Since(start))
}

// RevokeToken records a revoked token with a TTL equal to its remaining
// lifetime. Revoking twice is a no-op; revoking an already-expired token
// succeeds without writing, since such a token cannot authenticate anyway.
func (s *RevocationStore) RevokeToken(ctx context.Context, token auth.RevokedToken) (err error) {
	start := time.Now()
	defer func() { s.observe("revoke_token", start, err) }()

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err = s.client.Set(ctx, keyPrefix+token.Token, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set revoked token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token is in the revocation list.
func (s *RevocationStore) IsTokenRevoked(ctx context.Context, token string) (revoked bool, err error) {
	start := time.Now()
	defer func() { s.observe("is_token_revoked", start, err) }()

	n, err := s.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}

// DeleteExpiredTokens is a no-op: Redis drops entries when their TTL runs
// out. Implemented to satisfy the revocation store surface.
func (s *RevocationStore) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
