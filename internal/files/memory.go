package files

import (
	"context"
	"sync"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
)

// InMemory is the file store fake used by unit tests. URLs are synthetic and
// deletions are recorded so tests can assert the delete-before-commit
// ordering.
type InMemory struct {
	mu      sync.Mutex
	deleted []id.FileID
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) DownloadURL(ctx context.Context, ref models.FileRef) (string, error) {
	return "memory://" + ref.ID.String() + "/" + ref.DisplayName, nil
}

func (s *InMemory) Delete(ctx context.Context, refs []models.FileRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		s.deleted = append(s.deleted, ref.ID)
	}
	return nil
}

// Deleted returns every file id deleted so far.
func (s *InMemory) Deleted() []id.FileID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]id.FileID(nil), s.deleted...)
}
