package basket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the opaque key-value slot the basket is persisted in.
type KV interface {
	// Get reports whether the key existed.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV keeps slots in process memory.
type MemoryKV struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryKV constructs an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{slots: map[string][]byte{}}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements KV.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots == nil {
		m.slots = map[string][]byte{}
	}
	m.slots[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Ping always succeeds for the in-memory backend.
func (m *MemoryKV) Ping(context.Context) error { return nil }

// RedisKV stores slots as Redis strings.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKV constructs a Redis backend. A non-positive ttl keeps slots forever.
func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisKV{client: client, ttl: ttl}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r == nil || r.client == nil {
		return nil, false, errors.New("basket: redis client not configured")
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set implements KV.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if r == nil || r.client == nil {
		return errors.New("basket: redis client not configured")
	}
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// Delete implements KV.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return errors.New("basket: redis client not configured")
	}
	return r.client.Del(ctx, key).Err()
}

// Ping checks the Redis connection.
func (r *RedisKV) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("basket: redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

// ErrBackendUnavailable is returned by GuardedKV while its gate refuses calls.
var ErrBackendUnavailable = errors.New("basket: backend unavailable")

// Gate admits or refuses backend calls and learns from their outcome.
type Gate interface {
	Allow(ctx context.Context) bool
	Report(ctx context.Context, success bool)
}

// GuardedKV fails fast while Gate is refusing calls to Inner.
type GuardedKV struct {
	Inner KV
	Gate  Gate
}

// Get implements KV.
func (g GuardedKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !g.Gate.Allow(ctx) {
		return nil, false, ErrBackendUnavailable
	}
	v, ok, err := g.Inner.Get(ctx, key)
	g.Gate.Report(ctx, err == nil)
	return v, ok, err
}

// Set implements KV.
func (g GuardedKV) Set(ctx context.Context, key string, value []byte) error {
	if !g.Gate.Allow(ctx) {
		return ErrBackendUnavailable
	}
	err := g.Inner.Set(ctx, key, value)
	g.Gate.Report(ctx, err == nil)
	return err
}

// Delete implements KV.
func (g GuardedKV) Delete(ctx context.Context, key string) error {
	if !g.Gate.Allow(ctx) {
		return ErrBackendUnavailable
	}
	err := g.Inner.Delete(ctx, key)
	g.Gate.Report(ctx, err == nil)
	return err
}
