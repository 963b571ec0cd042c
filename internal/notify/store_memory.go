package notify

import (
	"context"
	"sync"

	id "casefile/pkg/domain"
)

// InMemoryStore keeps notifications in a slice for unit tests.
type InMemoryStore struct {
	mu            sync.Mutex
	notifications []Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *InMemoryStore) ListByTarget(ctx context.Context, target id.UserID) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.TargetID == target {
			out = append(out, n)
		}
	}
	return out, nil
}
