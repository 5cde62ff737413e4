package store

import (
	"context"
	"sync"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

// InMemoryStore keeps profiles in a map. It is safe for concurrent access.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.SubjectID]models.Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.SubjectID]models.Profile)}
}

// FindBySubject returns the profile or ErrNotFound.
func (s *InMemoryStore) FindBySubject(_ context.Context, subjectID id.SubjectID) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[subjectID]; ok {
		return p, nil
	}
	return models.Profile{}, ErrNotFound
}

// Save stores or overwrites a profile by subject.
func (s *InMemoryStore) Save(_ context.Context, profile models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.SubjectID] = profile
	return nil
}
