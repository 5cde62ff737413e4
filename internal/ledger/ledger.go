// Package ledger keeps the bounded verification history shown to a scanning operator.
package ledger

import (
	"sync"

	"sapp/internal/credential/models"
)

// DefaultCapacity is the number of results a ledger retains.
const DefaultCapacity = 10

// Ledger is a bounded, newest-first list of scan results. Appends are totally
// ordered by arrival; once full, the oldest entry is evicted.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	entries  []models.ScanResult
}

// New creates a Ledger. Non-positive capacities use DefaultCapacity.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		entries:  make([]models.ScanResult, 0, capacity),
	}
}

// Append records result as the newest entry.
func (l *Ledger) Append(result models.ScanResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, models.ScanResult{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = result
}

// List returns a snapshot of the entries, newest first.
func (l *Ledger) List() []models.ScanResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ScanResult, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) Capacity() int { return l.capacity }
