// Package files is the seam to blob storage. The aggregate only holds file
// references; resolving a download URL and deleting blobs happen here.
//
// Deletion is deliberately best-effort and outside the section writer's
// transaction boundary: the observed ordering deletes blobs before the
// aggregate commit, which can orphan a reference if the commit then fails.
// That gap is preserved, not fixed, pending product sign-off.
package files

import (
	"context"

	"casefile/internal/record/models"
)

// Store resolves and deletes file blobs.
type Store interface {
	// DownloadURL returns a short-lived URL serving the blob under its
	// display name.
	DownloadURL(ctx context.Context, ref models.FileRef) (string, error)
	// Delete removes the blobs. Partial failure returns the first error
	// after attempting every ref.
	Delete(ctx context.Context, refs []models.FileRef) error
}
