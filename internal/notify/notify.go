// Package notify delivers in-app notifications and emails triggered by
// section submissions. Delivery is strictly post-commit, sequential, and
// at-most-once: failures are logged by the caller, never retried, never
// surfaced to the submitting user.
package notify

import (
	"time"

	id "casefile/pkg/domain"
)

// Audience scopes who a notification is for.
type Audience string

const (
	// AudienceActionCreator targets the user who created a support action.
	AudienceActionCreator Audience = "action_creator"
)

// EmailTemplate names a canned email.
type EmailTemplate string

const (
	// TemplateActionInReview tells an action creator their offer moved to review.
	TemplateActionInReview EmailTemplate = "action_in_review"
)

// Notification is one in-app notification.
type Notification struct {
	ActorID     id.UserID
	Audience    Audience
	RecordID    id.RecordID
	ContextType string
	ContextID   string
	SubjectID   string
	Metadata    map[string]any
	TargetID    id.UserID
	CreatedAt   time.Time
}

// Email is one outbound email request.
type Email struct {
	ActorID   id.UserID
	Template  EmailTemplate
	RecordID  id.RecordID
	SubjectID string
	TargetIDs []id.UserID
}
