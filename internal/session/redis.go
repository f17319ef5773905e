package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/docchat/docchat/internal/memory"
)

const redisKeyPrefix = "docchat:session:"

// sessionTTL bounds how long an abandoned session survives.
const sessionTTL = 24 * time.Hour

// RedisStore persists session snapshots in Redis so sessions survive server
// restarts. Live sessions are additionally cached in-process so the answer
// worker and API handlers share one instance per session.
type RedisStore struct {
	rdb    *redis.Client
	model  string
	budget int

	mu   sync.Mutex
	live map[string]*Session
}

// NewRedisStore creates a RedisStore backed by the given client.
func NewRedisStore(rdb *redis.Client, model string, budget int) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		model:  model,
		budget: budget,
		live:   make(map[string]*Session),
	}
}

func (r *RedisStore) Create(ctx context.Context, settings Settings) (*Session, error) {
	s := New(uuid.New().String(), settings, memory.NewBuffer(r.model, r.budget))

	r.mu.Lock()
	r.live[s.ID()] = s
	r.mu.Unlock()

	if err := r.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.live[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	data, err := r.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	s := FromSnapshot(snap, memory.NewBuffer(r.model, r.budget))

	r.mu.Lock()
	// Another goroutine may have rehydrated concurrently; keep the first.
	if existing, ok := r.live[id]; ok {
		s = existing
	} else {
		r.live[id] = s
	}
	r.mu.Unlock()

	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", s.ID(), err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+s.ID(), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID(), err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()

	if err := r.rdb.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// NewStore returns a Redis-backed store when redisAddr is set, otherwise an
// in-memory one.
func NewStore(redisAddr, model string, budget int) Store {
	if redisAddr == "" {
		return NewMemoryStore(model, budget)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	return NewRedisStore(rdb, model, budget)
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*RedisStore)(nil)
