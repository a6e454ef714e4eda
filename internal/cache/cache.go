package cache

import (
	"time"
)

// Cache is the report cache interface. Values are serialized strings,
// typically split reports and corpus summaries keyed by run id.
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Factory builds a cache from its configuration
type Factory func(config Config) (Cache, error)

// registered cache implementations
var registry = make(map[string]Factory)

// RegisterCache registers a cache implementation under a name
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache creates a cache instance, falling back to memory
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryCache(config)
}

// Config holds cache settings
type Config struct {
	// Cache type: "memory" or "redis"
	Type string
	// Redis address (redis cache only)
	RedisAddr string
	// Redis password (redis cache only)
	RedisPassword string
	// Redis database number (redis cache only)
	RedisDB int
	// Default expiration for cached entries
	DefaultTTL time.Duration
	// Cleanup interval (memory cache only)
	CleanupInterval time.Duration
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// GenerateCacheKey builds a normalized cache key from its parts
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}

	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
