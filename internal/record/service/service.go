// Package service is the section engine: the only entry points the transport
// layer needs. Project reads a schema-filtered view of one section, Save
// merges a partial payload back into the aggregate, and Submit drives the
// section submission workflow with its action, audit, and notification side
// effects.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"casefile/internal/audit"
	"casefile/internal/files"
	"casefile/internal/notify"
	"casefile/internal/record/cache"
	"casefile/internal/record/metrics"
	"casefile/internal/record/schema"
	"casefile/internal/record/store"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/platform/sentinel"
	"casefile/pkg/requestcontext"
)

// Auditor records activity entries. Satisfied by *audit.Service.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Notifier delivers post-commit notifications. Satisfied by *notify.Service.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
	SendEmail(ctx context.Context, e notify.Email) error
}

// Service orchestrates section reads, saves, and submissions over one record
// aggregate. All mutation runs inside a single store transaction; side
// effects that must not roll a commit back (notifications, cache
// invalidation) run after it.
type Service struct {
	store    store.Store
	schemas  *schema.Registry
	files    files.Store
	auditor  Auditor
	notifier Notifier
	cache    cache.ProjectionCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(
	st store.Store,
	schemas *schema.Registry,
	fileStore files.Store,
	auditor Auditor,
	notifier Notifier,
	projections cache.ProjectionCache,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if projections == nil {
		projections = cache.Noop{}
	}
	return &Service{
		store:    st,
		schemas:  schemas,
		files:    fileStore,
		auditor:  auditor,
		notifier: notifier,
		cache:    projections,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("casefile/record"),
	}
}

// requestActor is the authenticated user saving or reading the record.
func requestActor(ctx context.Context) id.UserID {
	return requestcontext.UserID(ctx)
}

// storeErr translates store sentinels into coded domain errors. A missing
// record and an ownership mismatch are deliberately the same code, so callers
// cannot probe for records they do not own.
func storeErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeRecordNotFound, "record not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "record store failure")
}
