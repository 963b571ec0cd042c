package audit

import (
	"context"
	"sync"

	id "casefile/pkg/domain"
)

// InMemoryStore keeps audit entries in a slice. Used by unit tests to assert
// exact emission counts.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, entry := range s.entries {
		if entry.RecordID == recordID {
			out = append(out, entry)
		}
	}
	return out, nil
}
