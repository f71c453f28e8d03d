package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"homecare/models"

	"github.com/go-redis/redis/v8"
)

// SessionPrefix is the Redis key prefix for live tracking sessions.
const SessionPrefix = "trackingSession:"

// SessionStore is the single writer-of-record for live session state. Every
// component reads the current snapshot through it and writes back the full
// result of its operation via Update; nested state is never mutated from
// outside.
type SessionStore interface {
	Create(ctx context.Context, session *models.TrackingSession) error
	Get(ctx context.Context, requestID string) (*models.TrackingSession, error)
	// Update applies mutate to the current session under the store's write
	// lock and persists the result. If mutate returns an error, nothing is
	// written and the error is returned unchanged.
	Update(ctx context.Context, requestID string, mutate func(*models.TrackingSession) error) (*models.TrackingSession, error)
	Delete(ctx context.Context, requestID string) error
}

// RedisSessionStore keeps live sessions as JSON under a TTL, the same way
// short-lived flow state is cached elsewhere in the stack. A process-local
// mutex serializes read-modify-write cycles so an Update never interleaves
// with another writer between its read and its write.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration

	mu sync.Mutex
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Client: client, TTL: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.TrackingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal tracking session: %w", err)
	}
	ok, err := s.Client.SetNX(ctx, SessionPrefix+session.RequestID, data, s.TTL).Result()
	if err != nil {
		return fmt.Errorf("failed to store tracking session: %w", err)
	}
	if !ok {
		return NewValidationError("tracking session already exists for request %s", session.RequestID)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, requestID string) (*models.TrackingSession, error) {
	data, err := s.Client.Get(ctx, SessionPrefix+requestID).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracking session: %w", err)
	}
	var session models.TrackingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracking session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Update(ctx context.Context, requestID string, mutate func(*models.TrackingSession) error) (*models.TrackingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := mutate(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tracking session: %w", err)
	}
	if err := s.Client.Set(ctx, SessionPrefix+requestID, data, s.TTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store tracking session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Client.Del(ctx, SessionPrefix+requestID).Err()
}
