package ledger

import (
	"context"
	"sync"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

// MemoryStore keeps ledgers in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	ledgers  map[id.ScanSessionID]*Ledger
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		ledgers:  make(map[id.ScanSessionID]*Ledger),
	}
}

func (s *MemoryStore) Append(_ context.Context, session id.ScanSessionID, result models.ScanResult) error {
	s.ledger(session).Append(result)
	return nil
}

func (s *MemoryStore) List(_ context.Context, session id.ScanSessionID) ([]models.ScanResult, error) {
	s.mu.RLock()
	l, ok := s.ledgers[session]
	s.mu.RUnlock()
	if !ok {
		return []models.ScanResult{}, nil
	}
	return l.List(), nil
}

func (s *MemoryStore) Discard(_ context.Context, session id.ScanSessionID) error {
	s.mu.Lock()
	delete(s.ledgers, session)
	s.mu.Unlock()
	return nil
}

// ledger returns the session's ledger, creating it on first use.
func (s *MemoryStore) ledger(session id.ScanSessionID) *Ledger {
	s.mu.RLock()
	l, ok := s.ledgers[session]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.ledgers[session]; ok {
		return l
	}
	l = New(s.capacity)
	s.ledgers[session] = l
	return l
}
