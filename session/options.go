package session

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

// storeConfig holds configuration for session stores.
type storeConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
	maxTurns    int
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithInactivityTTL sets the inactivity window after which a session expires.
func WithInactivityTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// WithMaxTurns sets the clarification turn budget enforced by the store.
func WithMaxTurns(n int) StoreOption {
	return func(c *storeConfig) {
		c.maxTurns = n
	}
}
