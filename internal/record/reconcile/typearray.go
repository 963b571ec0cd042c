// Package reconcile holds the pure merge functions at the heart of the
// section engine. Both reconcilers take the existing collection plus the
// incoming partial payload and return a fresh collection; caller-owned slices
// are never mutated, which keeps save idempotent and the functions trivially
// unit-testable.
package reconcile

import (
	"time"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
	pstrings "casefile/pkg/platform/strings"
)

// TypeItems merges an incoming list of type codes into an existing tagged
// collection.
//
// A nil incoming list means the caller did not touch the collection: the
// existing items are returned unchanged (as a copy). Otherwise every existing
// item whose code is missing from the incoming list is soft-deleted, and
// every incoming code with no existing item is appended. An item whose code
// reappears after a soft delete is left as-is: there are no resurrection
// semantics, and the projector filters deleted items out.
func TypeItems(existing []models.TypeItem, incoming []string, actor id.UserID, now time.Time) []models.TypeItem {
	out := append([]models.TypeItem(nil), existing...)
	if incoming == nil {
		return out
	}

	codes := pstrings.DedupeAndTrim(incoming)
	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	present := make(map[string]struct{}, len(out))
	for i := range out {
		// First match wins when duplicates exist; duplicates are not
		// expected and not deduplicated here.
		if _, seen := present[out[i].Code]; !seen {
			present[out[i].Code] = struct{}{}
		}
		if _, keep := wanted[out[i].Code]; !keep && out[i].DeletedAt == nil {
			deletedAt := now
			out[i].DeletedAt = &deletedAt
		}
	}

	for _, code := range codes {
		if _, exists := present[code]; exists {
			continue
		}
		out = append(out, models.TypeItem{
			Code:      code,
			CreatedBy: actor,
			UpdatedBy: actor,
			CreatedAt: now,
		})
	}
	return out
}

// ActiveCodes returns the codes of the non-deleted items, in collection order.
func ActiveCodes(items []models.TypeItem) []string {
	codes := make([]string, 0, len(items))
	for _, item := range items {
		if item.DeletedAt == nil {
			codes = append(codes, item.Code)
		}
	}
	return codes
}
