package history

import (
	"fmt"
	"strings"
	"sync"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

// Order selects how read operations present records.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// ParseOrder accepts "newest" or "oldest".
func ParseOrder(raw string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "newest", "newest-first", "":
		return NewestFirst, nil
	case "oldest", "oldest-first":
		return OldestFirst, nil
	default:
		return NewestFirst, fmt.Errorf("unknown history order %q", raw)
	}
}

func (o Order) String() string {
	if o == OldestFirst {
		return "oldest"
	}
	return "newest"
}

// Store keeps verification records in insertion order. Append is the only mutator.
// Reads copy a snapshot under a read lock and apply the configured order to it.
type Store struct {
	mu      sync.RWMutex
	records []models.VerificationRecord
	order   Order
}

// NewStore creates an empty store presenting records in the given order.
func NewStore(order Order) *Store {
	return &Store{order: order}
}

// Order reports the presentation order.
func (s *Store) Order() Order {
	return s.order
}

// Append records a finished verification.
func (s *Store) Append(rec models.VerificationRecord) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns every record in presentation order.
func (s *Store) All() []models.VerificationRecord {
	return s.Filter(nil)
}

// Filter returns the records matching keep, in presentation order. A nil predicate keeps all.
func (s *Store) Filter(keep func(models.VerificationRecord) bool) []models.VerificationRecord {
	snapshot := s.snapshot()
	out := make([]models.VerificationRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Aggregate summarizes a snapshot of the store.
func (s *Store) Aggregate() Summary {
	return summarize(s.snapshot())
}

func (s *Store) snapshot() []models.VerificationRecord {
	s.mu.RLock()
	out := make([]models.VerificationRecord, len(s.records))
	copy(out, s.records)
	s.mu.RUnlock()

	if s.order == NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
