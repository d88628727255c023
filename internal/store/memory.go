package store

import (
	"context"
	"sync"
	"time"

	"github.com/weatherupdate/weather-update-service/internal/models"
)

// MemoryStore implements Store using a mutex-guarded map. Registrations are
// serialized under the lock, so a duplicate username always fails on the
// second attempt even under concurrent registration. Contents do not survive
// process restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]models.User),
	}
}

// Register implements Store.Register.
func (s *MemoryStore) Register(ctx context.Context, username, passwordHash string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return ErrAlreadyExists
	}
	s.users[username] = models.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

// Lookup implements Store.Lookup.
func (s *MemoryStore) Lookup(ctx context.Context, username string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return "", ErrNotFound
	}
	return u.PasswordHash, nil
}

// Ping implements Store.Ping. Always healthy.
func (s *MemoryStore) Ping() error {
	return nil
}

// Close implements Store.Close. No-op.
func (s *MemoryStore) Close() error {
	return nil
}
