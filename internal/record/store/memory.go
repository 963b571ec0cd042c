package store

import (
	"context"
	"sync"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
	"casefile/pkg/platform/sentinel"
)

// InMemory is the map-backed store used by unit tests and local development.
// It hands out deep copies so callers never alias stored state.
type InMemory struct {
	txMu    sync.Mutex
	mu      sync.RWMutex
	records map[id.RecordID]*models.Record
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]*models.Record)}
}

func (s *InMemory) FindOwned(ctx context.Context, recordID id.RecordID, owner id.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordID]
	if !ok || record.OwnerID != owner {
		// Ownership mismatch is indistinguishable from absence on purpose.
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemory) Create(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	AssignIDs(record)
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemory) Save(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists {
		return sentinel.ErrNotFound
	}
	AssignIDs(record)
	s.records[record.ID] = record.Clone()
	return nil
}

// RunInTx serializes transactions behind a single mutex and restores a
// snapshot on failure. Concurrent saves outside a transaction still race
// last-write-wins, matching the storage layer's native isolation.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *InMemory) snapshot() map[id.RecordID]*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[id.RecordID]*models.Record, len(s.records))
	for key, record := range s.records {
		snap[key] = record.Clone()
	}
	return snap
}

func (s *InMemory) restore(snapshot map[id.RecordID]*models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snapshot
}
