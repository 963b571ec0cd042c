package audit

import (
	"context"
	"log/slog"
	"time"
)

// Service records audit entries. The store write is synchronous and joins the
// caller's transaction through context; the stream mirror is best-effort and
// must never block or fail the calling operation, so entries are handed to
// the worker through a buffered channel and dropped with a log line when the
// buffer is full.
type Service struct {
	store  Store
	logger *slog.Logger
	outbox chan Entry
}

const outboxBuffer = 256

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		outbox: make(chan Entry, outboxBuffer),
	}
}

// Record persists one audit entry.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return err
	}

	select {
	case s.outbox <- entry:
	default:
		s.logger.WarnContext(ctx, "audit stream outbox full, entry not mirrored",
			"kind", entry.Kind,
			"record_id", entry.RecordID,
		)
	}
	return nil
}

// Outbox exposes the mirror channel for the stream worker.
func (s *Service) Outbox() <-chan Entry {
	return s.outbox
}
