package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"geoplaces/internal/model"
)

// Session is what an auth token resolves to: the role it was issued for
// and, for user logins, the account id.
type Session struct {
	Role      model.Role `json:"role"`
	UserID    *int64     `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TokenStore validates and manages opaque auth tokens. Implementations
// must be safe for concurrent use; Get must treat expired entries as
// absent and may purge them as a side effect.
type TokenStore interface {
	Store(ctx context.Context, token string, s Session) error
	Get(ctx context.Context, token string) (Session, bool, error)
	Delete(ctx context.Context, token string) error
	Extend(ctx context.Context, token string) (bool, error)
}

const tokenKeyPrefix = "token:"

// RedisTokenStore keeps sessions in Redis under token:<value> keys whose
// TTL enforces expiry, so tokens survive process restarts and are shared
// across replicas.
type RedisTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenStore(client *redis.Client, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, ttl: ttl}
}

func (s *RedisTokenStore) Store(ctx context.Context, token string, sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.SetEx(ctx, tokenKeyPrefix+token, payload, s.ttl).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, token string) (Session, bool, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}

func (s *RedisTokenStore) Extend(ctx context.Context, token string) (bool, error) {
	ok, err := s.client.Expire(ctx, tokenKeyPrefix+token, s.ttl).Result()
	return ok, err
}

// MemoryTokenStore is the in-process fallback used when Redis is not
// reachable at startup. Tokens do not survive restarts and are not shared
// across replicas, which is acceptable for development.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

func NewMemoryTokenStore(ttl time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryTokenStore) Store(_ context.Context, token string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{sess: sess, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, token string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return Session{}, false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, token)
		return Session{}, false, nil
	}
	return e.sess, true, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

func (s *MemoryTokenStore) Extend(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.entries, token)
		return false, nil
	}
	e.expiresAt = s.now().Add(s.ttl)
	s.entries[token] = e
	return true, nil
}
