// Package idempotency implements the client-request-id law of spec.md §5:
// a repeated Apply call with the same client_request_id within the
// retention window replays the original result instead of re-executing
// uploads, and a per-plan_id lock serializes concurrent Apply calls against
// the same plan. Redis backs both when configured (internal/platform/redis,
// SETNX + TTL); an in-process map substitutes when it is not, the same
// graceful-degradation shape internal/platform/archive uses for S3.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redisplatform "github.com/andreypavlenko/caesub/internal/platform/redis"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a cached Apply result survives for idempotent
// replay. Plan locks use lockTTL instead.
const DefaultTTL = 24 * time.Hour

const lockTTL = 10 * time.Minute

// Store is the seam modules/workflow/service.Service drives; both
// implementations below satisfy it structurally.
type Store interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Lock(ctx context.Context, key string) (bool, func(), error)
}

// RedisStore persists idempotency records and plan locks in Redis via
// SETNX, so they survive process restarts and are shared across replicas.
type RedisStore struct {
	client *redisplatform.Client
	ttl    time.Duration
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(client *redisplatform.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency: redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("idempotency: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("idempotency: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: redis set %s: %w", key, err)
	}
	return nil
}

// Lock acquires a distributed lock via SETNX, returning ok=false (never an
// error) when another process already holds it.
func (s *RedisStore) Lock(ctx context.Context, key string) (bool, func(), error) {
	ok, err := s.client.SetNX(ctx, "lock:"+key, "1", lockTTL).Result()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency: redis setnx %s: %w", key, err)
	}
	if !ok {
		return false, nil, nil
	}
	release := func() { _ = s.client.Del(context.Background(), "lock:"+key).Err() }
	return true, release, nil
}

// MemoryStore is the in-process fallback used when Redis is unconfigured.
// It loses its state across restarts, the same tradeoff
// internal/platform/archive's nil-client path accepts for evidence
// mirroring — only the authoritative on-disk tree is required to survive.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]entry
	locks   map[string]bool
}

type entry struct {
	raw       json.RawMessage
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-process idempotency store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]entry), locks: make(map[string]bool)}
}

func (s *MemoryStore) Get(ctx context.Context, key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[key]
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.raw, out); err != nil {
		return false, fmt.Errorf("idempotency: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("idempotency: encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = entry{raw: raw, expiresAt: time.Now().Add(DefaultTTL)}
	return nil
}

func (s *MemoryStore) Lock(ctx context.Context, key string) (bool, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return false, nil, nil
	}
	s.locks[key] = true
	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.locks, key)
	}
	return true, release, nil
}
