package session

import (
	"time"
)

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const defaultTTL = 30 * time.Minute

// NewStore creates a session Store of the given type.
// For Redis, requires the WithRedisClient option.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{ttl: defaultTTL}

	// Apply options
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return &inMemoryStore{
			sessions: make(map[string]*Session),
			ttl:      config.ttl,
			maxTurns: config.maxTurns,
		}, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{
			client:   config.redisClient,
			ttl:      config.ttl,
			maxTurns: config.maxTurns,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}
