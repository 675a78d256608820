package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the key/value store snapshots are written through to.
// Load returns (nil, nil) when the key does not exist.
type Cache interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	GenerateKey(scope, key string) string
}

type redisCache struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
}

// NewRedisCache returns a Cache backed by the redis server at addr.
// A ttl of zero keeps keys forever.
func NewRedisCache(addr, serviceName string, ttl time.Duration) Cache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: addr}), serviceName, ttl)
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, serviceName string, ttl time.Duration) Cache {
	return &redisCache{
		client:      client,
		serviceName: serviceName,
		ttl:         ttl,
	}
}

func (r redisCache) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: save %q: %w", key, err)
	}
	return nil
}

func (r redisCache) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: load %q: %w", key, err)
	}
	return val, nil
}

func (r redisCache) GenerateKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.serviceName, scope, key)
}

type memoryCache struct {
	mu          sync.RWMutex
	serviceName string
	values      map[string][]byte
}

// NewMemoryCache returns a process-local Cache, used when no redis is configured.
func NewMemoryCache(serviceName string) Cache {
	return &memoryCache{
		serviceName: serviceName,
		values:      make(map[string][]byte),
	}
}

func (m *memoryCache) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryCache) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryCache) GenerateKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.serviceName, scope, key)
}
