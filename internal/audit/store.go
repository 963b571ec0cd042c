package audit

import (
	"context"

	id "casefile/pkg/domain"
)

// Store is the append-only persistence seam for audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]Entry, error)
}
