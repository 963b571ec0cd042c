package service

import (
	"context"
	"time"

	"casefile/internal/audit"
	"casefile/internal/notify"
	"casefile/internal/record/models"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/requestcontext"
)

// Submit marks the given sections SUBMITTED inside one transaction. Every
// REQUESTED action owned by a submitted section moves to IN_REVIEW with the
// section row recorded on it. One audit entry is written per submitted
// section, plus one summarizing entry per section when at least one action
// moved. After the commit, each moved action produces one in-app notification
// and one email to the action's creator; delivery failures are logged and
// never surfaced.
func (s *Service) Submit(ctx context.Context, recordID id.RecordID, keys []models.SectionKey) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "record.submit")
	defer span.End()

	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record id is required")
	}
	if len(keys) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one section key is required")
	}
	for _, key := range keys {
		if _, err := s.schemas.Write(key); err != nil {
			return nil, err
		}
	}

	actor := requestActor(ctx)
	now := requestcontext.Now(ctx)

	var (
		record *models.Record
		moved  []models.Action
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.findOwned(ctx, recordID)
		if err != nil {
			return err
		}

		for _, key := range keys {
			movedForKey, err := s.submitSection(ctx, record, key, actor, now)
			if err != nil {
				return err
			}
			moved = append(moved, movedForKey...)
		}

		record.UpdatedAt = now
		if err := s.store.Save(ctx, record); err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.cache.InvalidateRecord(ctx, recordID)
	for _, key := range keys {
		s.metrics.ObserveSubmit(string(key))
	}
	s.metrics.ObserveActions(len(moved))

	s.dispatchNotifications(ctx, record, moved, actor)
	return record, nil
}

// submitSection transitions one section and its REQUESTED actions, writing
// the audit entries inside the surrounding transaction.
func (s *Service) submitSection(ctx context.Context, record *models.Record, key models.SectionKey, actor id.UserID, now time.Time) ([]models.Action, error) {
	row := record.Section(key)
	if row == nil {
		// A never-saved section submits directly, skipping DRAFT.
		row = &models.Section{
			ID:        id.NewSectionID(),
			Key:       key,
			Status:    models.SectionSubmitted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		record.Sections = append(record.Sections, row)
	} else {
		row.Status = models.SectionSubmitted
		row.UpdatedAt = now
	}
	submittedAt := now
	row.SubmittedAt = &submittedAt

	var moved []models.Action
	for _, action := range record.ActionsForSection(key) {
		if action.Status != models.ActionRequested {
			continue
		}
		sectionID := row.ID
		action.Status = models.ActionInReview
		action.SectionID = &sectionID
		action.UpdatedAt = now
		moved = append(moved, *action)
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor,
		RecordID:   record.ID,
		Kind:       audit.KindSectionSubmitted,
		Metadata:   map[string]any{"section": string(key)},
		OccurredAt: now,
	}); err != nil {
		return nil, err
	}
	if len(moved) > 0 {
		if err := s.auditor.Record(ctx, audit.Entry{
			ActorID:    actor,
			RecordID:   record.ID,
			Kind:       audit.KindActionsMovedToReview,
			Metadata:   map[string]any{"section": string(key), "count": len(moved)},
			OccurredAt: now,
		}); err != nil {
			return nil, err
		}
	}
	return moved, nil
}

// dispatchNotifications runs strictly post-commit, sequentially, at most
// once. A failed delivery is logged and skipped, never retried.
func (s *Service) dispatchNotifications(ctx context.Context, record *models.Record, moved []models.Action, actor id.UserID) {
	for _, action := range moved {
		if err := s.notifier.Notify(ctx, notify.Notification{
			ActorID:     actor,
			Audience:    notify.AudienceActionCreator,
			RecordID:    record.ID,
			ContextType: "section",
			ContextID:   string(action.SectionKey),
			SubjectID:   action.ID.String(),
			Metadata:    map[string]any{"status": string(action.Status)},
			TargetID:    action.CreatedBy,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to store action notification",
				"action_id", action.ID,
				"error", err,
			)
		}

		if err := s.notifier.SendEmail(ctx, notify.Email{
			ActorID:   actor,
			Template:  notify.TemplateActionInReview,
			RecordID:  record.ID,
			SubjectID: action.ID.String(),
			TargetIDs: []id.UserID{action.CreatedBy},
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to email action creator",
				"action_id", action.ID,
				"error", err,
			)
		}
	}
}
