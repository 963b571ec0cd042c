package models

import (
	"time"

	id "casefile/pkg/domain"
)

// ActionStatus is the lifecycle state of a support action.
type ActionStatus string

const (
	// ActionRequested means the offer is waiting for the section it targets
	// to be submitted.
	ActionRequested ActionStatus = "REQUESTED"
	// ActionInReview means the owning section was submitted and the offer is
	// under review.
	ActionInReview ActionStatus = "IN_REVIEW"
	ActionDeclined ActionStatus = "DECLINED"
	ActionCompleted ActionStatus = "COMPLETED"
)

// Action is an offer of support coupled to one section of the record.
// Submitting the section moves every REQUESTED action to IN_REVIEW and records
// the submitted section row on the action.
type Action struct {
	ID         id.ActionID
	SectionKey SectionKey
	SectionID  *id.SectionID
	Status     ActionStatus
	CreatedBy  id.UserID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
