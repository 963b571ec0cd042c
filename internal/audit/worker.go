package audit

import (
	"context"
	"log/slog"
)

// Sink is where the worker ships entries. Satisfied by *Publisher.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// NopSink discards entries. Used when no stream backend is configured, so the
// outbox still drains.
type NopSink struct{}

func (NopSink) Publish(ctx context.Context, entry Entry) error { return nil }

// Worker drains the service outbox into the sink. Publish failures are
// logged and the entry is dropped; the store remains the source of truth.
type Worker struct {
	sink   Sink
	inbox  <-chan Entry
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "failed to mirror audit entry",
					"kind", entry.Kind,
					"record_id", entry.RecordID,
					"error", err,
				)
			}
		}
	}
}
