package cache

import (
	"context"
	"sync"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

// MemoryStore is an in-process Store used in tests and as a fallback when no
// Redis is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*domain.UserProfile)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[userID], nil
}

func (s *MemoryStore) Set(_ context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}
