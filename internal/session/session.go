// Package session issues and resolves login session tokens for the
// presentation layer. The gate stays stateless; remembering that a user
// authenticated is this package's job. Tokens live in Redis so sessions
// survive process restarts; tests and single-node setups use the memory
// store.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a session lives without activity. Admin requests
// slide the expiry forward.
const DefaultTTL = 4 * time.Hour

const keyPrefix = "session:"

// ErrNotFound is returned when a token is unknown or has expired.
var ErrNotFound = errors.New("session not found")

// Store maps opaque session tokens to usernames, with expiry.
type Store interface {
	// Create mints a new token for username, valid for ttl.
	Create(ctx context.Context, username string, ttl time.Duration) (string, error)
	// Lookup resolves a token to its username, or ErrNotFound.
	Lookup(ctx context.Context, token string) (string, error)
	// Refresh extends a live token's expiry. Missing tokens are a no-op.
	Refresh(ctx context.Context, token string, ttl time.Duration) error
	// Delete invalidates a token.
	Delete(ctx context.Context, token string) error
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RedisStore keeps sessions under "session:<token>" keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and pings it before returning.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Create(ctx context.Context, username string, ttl time.Duration) (string, error) {
	token := newToken()
	if err := s.client.SetEx(ctx, keyPrefix+token, username, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (string, error) {
	username, err := s.client.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

func (s *RedisStore) Refresh(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Expire(ctx, keyPrefix+token, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is the in-process fallback when no Redis URL is configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	username  string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

func (s *MemoryStore) Create(ctx context.Context, username string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := newToken()
	s.sessions[token] = memorySession{username: username, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", ErrNotFound
	}
	return sess.username, nil
}

func (s *MemoryStore) Refresh(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.expiresAt = time.Now().Add(ttl)
		s.sessions[token] = sess
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
