package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "casefile/pkg/domain"
)

// Store persists in-app notifications.
type Store interface {
	Append(ctx context.Context, n Notification) error
	ListByTarget(ctx context.Context, target id.UserID) ([]Notification, error)
}

// EmailSender ships one rendered email. Satisfied by *SMTPSender.
type EmailSender interface {
	Send(to []string, subject, body string) error
}

// AddressLookup resolves user ids to email addresses. The user directory is
// outside this service; callers inject a lookup backed by it.
type AddressLookup func(ctx context.Context, userID id.UserID) (string, error)

// Service is the notification collaborator consumed by the section workflow.
type Service struct {
	store     Store
	emails    EmailSender
	addresses AddressLookup
	logger    *slog.Logger
}

func NewService(store Store, emails EmailSender, addresses AddressLookup, logger *slog.Logger) *Service {
	return &Service{store: store, emails: emails, addresses: addresses, logger: logger}
}

// Notify stores one in-app notification.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return s.store.Append(ctx, n)
}

// SendEmail renders the template and ships one email per target user.
// Unresolvable addresses fail that target only.
func (s *Service) SendEmail(ctx context.Context, e Email) error {
	subject, body := render(e)
	var firstErr error
	for _, target := range e.TargetIDs {
		addr, err := s.addresses(ctx, target)
		if err != nil {
			s.logger.WarnContext(ctx, "no email address for notification target",
				"target_id", target,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := s.emails.Send([]string{addr}, subject, body); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func render(e Email) (subject, body string) {
	switch e.Template {
	case TemplateActionInReview:
		return "Your support offer is in review",
			fmt.Sprintf("The section you offered to support on case %s was submitted.\r\n"+
				"Your offer (%s) has moved to review.\r\n", e.RecordID, e.SubjectID)
	default:
		return string(e.Template), "Case " + e.RecordID.String() + " has an update.\r\n"
	}
}
