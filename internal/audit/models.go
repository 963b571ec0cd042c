// Package audit captures structured activity entries for case records. Writes
// happen inside the caller's transaction through the store; a background
// worker mirrors committed entries to the audit stream for downstream
// consumers.
package audit

import (
	"time"

	id "casefile/pkg/domain"
)

// Kind classifies an audit entry.
type Kind string

const (
	// KindSectionDraftSaved is emitted when a section draft is saved on a
	// record that is past its initial creation stage.
	KindSectionDraftSaved Kind = "section_draft_saved"
	// KindSectionSubmitted is emitted once per submitted section.
	KindSectionSubmitted Kind = "section_submitted"
	// KindActionsMovedToReview summarizes the actions a submission moved to
	// IN_REVIEW. Emitted only when at least one action moved.
	KindActionsMovedToReview Kind = "actions_moved_to_review"
)

// Entry is one audit fact. Keep it transport-agnostic so stores and the
// stream publisher can fan out.
type Entry struct {
	ActorID    id.UserID      `json:"actorId"`
	RecordID   id.RecordID    `json:"recordId"`
	Kind       Kind           `json:"kind"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
