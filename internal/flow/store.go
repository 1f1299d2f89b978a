package flow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "monthlify:results:"

// ResultStore holds materialization results between the confirm step and the result view.
type ResultStore interface {
	// Put replaces the results stored under key.
	Put(ctx context.Context, key string, results []models.MaterializedPlaylist) error
	// Get returns the results under key and whether there were any.
	Get(ctx context.Context, key string) ([]models.MaterializedPlaylist, bool, error)
	// Clear removes the results under key.
	Clear(ctx context.Context, key string) error
}

// SessionKey derives a store key from a session credential so the credential itself is never stored.
func SessionKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	results []models.MaterializedPlaylist
	expires time.Time
}

// MemoryResultStore is a process-wide [ResultStore]. Entries expire after a TTL.
type MemoryResultStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewMemoryResultStore creates an empty store; a non-positive ttl keeps entries until cleared.
func NewMemoryResultStore(ttl time.Duration) *MemoryResultStore {
	return &MemoryResultStore{ttl: ttl, now: time.Now, entries: map[string]entry{}}
}

func (m *MemoryResultStore) Put(_ context.Context, key string, results []models.MaterializedPlaylist) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{results: slices.Clone(results)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	m.sweep()
	return nil
}

func (m *MemoryResultStore) Get(_ context.Context, key string) ([]models.MaterializedPlaylist, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return slices.Clone(e.results), true, nil
}

func (m *MemoryResultStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of live entries.
func (m *MemoryResultStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.entries)
}

// sweep drops expired entries. Must be called with mu held.
func (m *MemoryResultStore) sweep() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}

// RedisResultStore keeps results in redis as JSON with a TTL.
type RedisResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultStore creates a store on client.
func NewRedisResultStore(client *redis.Client, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func redisKey(key string) string {
	return redisPrefix + key
}

func (s *RedisResultStore) Put(ctx context.Context, key string, results []models.MaterializedPlaylist) error {
	if s.client == nil {
		return errors.New("redis client not initialized")
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	return nil
}

func (s *RedisResultStore) Get(ctx context.Context, key string) ([]models.MaterializedPlaylist, bool, error) {
	if s.client == nil {
		return nil, false, errors.New("redis client not initialized")
	}

	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load results: %w", err)
	}

	var results []models.MaterializedPlaylist
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return results, true, nil
}

func (s *RedisResultStore) Clear(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("redis client not initialized")
	}
	return s.client.Del(ctx, redisKey(key)).Err()
}

// InFlight tracks keys with an outstanding request so a second submission can be rejected.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewInFlight creates an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{keys: map[string]struct{}{}}
}

// Acquire marks key busy. It returns false when key is already busy.
func (g *InFlight) Acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return false
	}
	g.keys[key] = struct{}{}
	return true
}

// Release marks key idle.
func (g *InFlight) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
}
