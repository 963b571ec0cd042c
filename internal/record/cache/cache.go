// Package cache holds the read-side projection cache. Projections are cheap
// but hot; caching them keyed by record and section keeps repeated reads off
// the aggregate store. Every write path invalidates the whole record.
package cache

import (
	"context"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
)

// ProjectionCache stores filtered section views. Implementations must treat
// every failure as a miss; the cache is never load-bearing.
type ProjectionCache interface {
	Get(ctx context.Context, recordID id.RecordID, key models.SectionKey) (*models.SectionView, bool)
	Set(ctx context.Context, recordID id.RecordID, key models.SectionKey, view *models.SectionView)
	InvalidateRecord(ctx context.Context, recordID id.RecordID)
}

// Noop disables caching. Used in tests and when Redis is not configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, recordID id.RecordID, key models.SectionKey) (*models.SectionView, bool) {
	return nil, false
}

func (Noop) Set(ctx context.Context, recordID id.RecordID, key models.SectionKey, view *models.SectionView) {
}

func (Noop) InvalidateRecord(ctx context.Context, recordID id.RecordID) {}
