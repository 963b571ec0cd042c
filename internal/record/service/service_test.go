package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"casefile/internal/audit"
	"casefile/internal/files"
	"casefile/internal/notify"
	"casefile/internal/record/cache"
	"casefile/internal/record/models"
	"casefile/internal/record/schema"
	"casefile/internal/record/store"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/requestcontext"
)

// =============================================================================
// Section Service Test Suite
// =============================================================================
// Justification for unit tests: the section engine carries the merge,
// submission, and side-effect semantics of the whole system. Memory fakes let
// every branch (reconciliation, rollback, audit counts, notification counts)
// be asserted exactly, which HTTP-level tests cannot do.

type captureEmails struct {
	mu    sync.Mutex
	sends int
	fail  bool
}

func (c *captureEmails) Send(to []string, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("smtp unavailable")
	}
	c.sends++
	return nil
}

func (c *captureEmails) Sends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

type SectionServiceSuite struct {
	suite.Suite
	store       *store.InMemory
	files       *files.InMemory
	auditStore  *audit.InMemoryStore
	notifyStore *notify.InMemoryStore
	emails      *captureEmails
	service     *Service

	owner    id.UserID
	stranger id.UserID
	now      time.Time
	ctx      context.Context
	record   *models.Record
}

func TestSectionServiceSuite(t *testing.T) {
	suite.Run(t, new(SectionServiceSuite))
}

func (s *SectionServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = store.NewInMemory()
	s.files = files.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	s.notifyStore = notify.NewInMemoryStore()
	s.emails = &captureEmails{}

	lookup := func(ctx context.Context, userID id.UserID) (string, error) {
		return userID.String() + "@casefile.test", nil
	}

	s.service = New(
		s.store,
		schema.New(),
		s.files,
		audit.NewService(s.auditStore, logger),
		notify.NewService(s.notifyStore, s.emails, lookup, logger),
		cache.Noop{},
		nil,
		logger,
	)

	s.owner = id.NewUserID()
	s.stranger = id.NewUserID()
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithUserID(context.Background(), s.owner), s.now)

	s.record = &models.Record{
		ID:      id.NewRecordID(),
		OwnerID: s.owner,
		Status:  models.RecordStatusActive,
		Name:    "test case",
		Summary: "initial summary",
		Sections: []*models.Section{
			{
				Key:       models.SectionDescription,
				Status:    models.SectionDraft,
				CreatedAt: s.now.Add(-time.Hour),
				UpdatedAt: s.now.Add(-time.Hour),
			},
		},
		CreatedAt: s.now.Add(-time.Hour),
		UpdatedAt: s.now.Add(-time.Hour),
	}
	s.Require().NoError(s.store.Create(context.Background(), s.record))
}

func (s *SectionServiceSuite) reload() *models.Record {
	record, err := s.store.FindOwned(context.Background(), s.record.ID, s.owner)
	s.Require().NoError(err)
	return record
}

// viewPayload converts a projected view's data back into a client payload, so
// round-trip tests submit exactly what they read.
func viewPayload(data map[string]any) models.SectionPayload {
	payload := make(models.SectionPayload, len(data))
	for k, v := range data {
		payload[k] = viewValue(v)
	}
	return payload
}

func viewValue(v any) any {
	switch t := v.(type) {
	case []string:
		list := make([]any, len(t))
		for i, code := range t {
			list[i] = code
		}
		return list
	case []map[string]any:
		list := make([]any, len(t))
		for i, item := range t {
			converted := make(map[string]any, len(item))
			for k, nested := range item {
				converted[k] = viewValue(nested)
			}
			list[i] = converted
		}
		return list
	default:
		return v
	}
}

// =============================================================================
// Projection Tests
// =============================================================================

func (s *SectionServiceSuite) TestProject() {
	s.Run("unknown section key", func() {
		_, err := s.service.Project(s.ctx, s.record.ID, "NOT_A_KEY")
		s.True(dErrors.Is(err, dErrors.CodeSectionNotFound))
	})

	s.Run("missing record id", func() {
		_, err := s.service.Project(s.ctx, id.RecordID{}, models.SectionDescription)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("never-saved section projects as NOT_STARTED", func() {
		view, err := s.service.Project(s.ctx, s.record.ID, models.SectionContact)
		s.Require().NoError(err)
		s.Equal(models.SectionNotStarted, view.Section.Status)
		s.Equal(models.SectionContact, view.Section.Key)
		s.Nil(view.Section.SubmittedAt)
	})

	s.Run("scalar fields intersect the read allow-list", func() {
		view, err := s.service.Project(s.ctx, s.record.ID, models.SectionDescription)
		s.Require().NoError(err)
		s.Equal(models.SectionDraft, view.Section.Status)
		s.Equal("initial summary", view.Data["summary"])
		s.NotContains(view.Data, "name")
		s.NotContains(view.Data, "contactEmail")
	})

	s.Run("record not owned by actor", func() {
		strangerCtx := requestcontext.WithUserID(context.Background(), s.stranger)
		_, err := s.service.Project(strangerCtx, s.record.ID, models.SectionDescription)
		s.True(dErrors.Is(err, dErrors.CodeRecordNotFound))
	})
}

func (s *SectionServiceSuite) TestProjectFiles() {
	fileID := id.NewFileID()
	record := s.reload()
	record.Sections = append(record.Sections, &models.Section{
		Key:    models.SectionDocuments,
		Status: models.SectionDraft,
		Files:  []models.FileRef{{ID: fileID, DisplayName: "lease.pdf"}},
	})
	s.Require().NoError(s.store.Save(context.Background(), record))

	view, err := s.service.Project(s.ctx, s.record.ID, models.SectionDocuments)
	s.Require().NoError(err)

	resolved, ok := view.Data["files"].([]map[string]any)
	s.Require().True(ok)
	s.Require().Len(resolved, 1)
	s.Equal(fileID.String(), resolved[0]["id"])
	s.Equal("lease.pdf", resolved[0]["displayName"])
	s.Equal("memory://"+fileID.String()+"/lease.pdf", resolved[0]["downloadUrl"])
}

// =============================================================================
// Save Tests
// =============================================================================

func (s *SectionServiceSuite) TestSaveValidation() {
	s.Run("missing record id", func() {
		_, err := s.service.Save(s.ctx, id.RecordID{}, models.SectionNeeds, models.SectionPayload{})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("missing section key", func() {
		_, err := s.service.Save(s.ctx, s.record.ID, "", models.SectionPayload{})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("missing payload", func() {
		_, err := s.service.Save(s.ctx, s.record.ID, models.SectionNeeds, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown section key", func() {
		_, err := s.service.Save(s.ctx, s.record.ID, "NOT_A_KEY", models.SectionPayload{})
		s.True(dErrors.Is(err, dErrors.CodeSectionNotFound))
	})

	s.Run("ownership mismatch performs no mutation", func() {
		strangerCtx := requestcontext.WithUserID(context.Background(), s.stranger)
		_, err := s.service.Save(strangerCtx, s.record.ID, models.SectionDescription,
			models.SectionPayload{"summary": "hijacked"})
		s.True(dErrors.Is(err, dErrors.CodeRecordNotFound))
		s.Equal("initial summary", s.reload().Summary)
	})
}

func (s *SectionServiceSuite) TestSaveSectionCreationIsSingular() {
	payload := models.SectionPayload{"contactName": "Dana"}

	updated, err := s.service.Save(s.ctx, s.record.ID, models.SectionContact, payload)
	s.Require().NoError(err)

	row := updated.Section(models.SectionContact)
	s.Require().NotNil(row)
	s.Equal(models.SectionDraft, row.Status)
	firstID := row.ID
	s.False(firstID.IsNil())

	updated, err = s.service.Save(s.ctx, s.record.ID, models.SectionContact,
		models.SectionPayload{"contactName": "Dana Reyes"})
	s.Require().NoError(err)

	count := 0
	for _, section := range updated.Sections {
		if section.Key == models.SectionContact {
			count++
			s.Equal(firstID, section.ID)
		}
	}
	s.Equal(1, count)
	s.Equal("Dana Reyes", updated.ContactName)
}

func (s *SectionServiceSuite) TestSaveConcreteScenario() {
	// One saved DESCRIPTION section and zero dependency items; saving NEEDS
	// with one new subgroup must add exactly one section row and one item,
	// leaving unrelated scalar fields alone.
	payload := models.SectionPayload{
		"subgroups": []any{map[string]any{"name": "subgroup test"}},
	}
	updated, err := s.service.Save(s.ctx, s.record.ID, models.SectionNeeds, payload)
	s.Require().NoError(err)

	s.Len(updated.Sections, 2)
	s.Require().Len(updated.Dependencies[schema.CollectionSubgroups], 1)
	item := updated.Dependencies[schema.CollectionSubgroups][0]
	s.Equal("subgroup test", item.Fields["name"])
	s.False(item.ID.IsNil())
	s.Equal(s.owner, item.CreatedBy)
	s.Equal("test case", updated.Name)
}

func (s *SectionServiceSuite) TestSaveRoundTrip() {
	seed := models.SectionPayload{
		"needsNote": "urgent",
		"needTypes": []any{"FOOD", "RENT"},
		"subgroups": []any{
			map[string]any{"name": "family", "headcount": "4", "needTypes": []any{"FOOD"}},
		},
	}
	_, err := s.service.Save(s.ctx, s.record.ID, models.SectionNeeds, seed)
	s.Require().NoError(err)

	first, err := s.service.Project(s.ctx, s.record.ID, models.SectionNeeds)
	s.Require().NoError(err)

	// Re-submitting the projected data unchanged must be a no-op on the view.
	_, err = s.service.Save(s.ctx, s.record.ID, models.SectionNeeds, viewPayload(first.Data))
	s.Require().NoError(err)

	second, err := s.service.Project(s.ctx, s.record.ID, models.SectionNeeds)
	s.Require().NoError(err)
	s.Equal(first.Data, second.Data)
	s.Equal(models.SectionDraft, second.Section.Status)
}

func (s *SectionServiceSuite) TestSaveLeavesAbsentCollectionsUntouched() {
	_, err := s.service.Save(s.ctx, s.record.ID, models.SectionNeeds,
		models.SectionPayload{"needTypes": []any{"FOOD"}})
	s.Require().NoError(err)

	updated, err := s.service.Save(s.ctx, s.record.ID, models.SectionNeeds,
		models.SectionPayload{"needsNote": "note only"})
	s.Require().NoError(err)

	s.Equal("note only", updated.NeedsNote)
	s.Require().Len(updated.TypeCollections[schema.CollectionNeedTypes], 1)
	s.Nil(updated.TypeCollections[schema.CollectionNeedTypes][0].DeletedAt)
}

func (s *SectionServiceSuite) TestSaveUnknownDependencyIDRollsBack() {
	payload := models.SectionPayload{
		"needsNote": "should not persist",
		"subgroups": []any{map[string]any{"id": id.NewItemID().String(), "name": "ghost"}},
	}
	_, err := s.service.Save(s.ctx, s.record.ID, models.SectionNeeds, payload)
	s.True(dErrors.Is(err, dErrors.CodeInvalidData))

	reloaded := s.reload()
	s.Equal("", reloaded.NeedsNote)
	s.Empty(reloaded.Dependencies[schema.CollectionSubgroups])
	s.Len(reloaded.Sections, 1)
}

func (s *SectionServiceSuite) TestSaveResetsSubmittedToDraft() {
	_, err := s.service.Submit(s.ctx, s.record.ID, []models.SectionKey{models.SectionDescription})
	s.Require().NoError(err)

	updated, err := s.service.Save(s.ctx, s.record.ID, models.SectionDescription,
		models.SectionPayload{"summary": "revised"})
	s.Require().NoError(err)

	row := updated.Section(models.SectionDescription)
	s.Require().NotNil(row)
	s.Equal(models.SectionDraft, row.Status)
	// The submission timestamp survives as a trace of the earlier submission.
	s.NotNil(row.SubmittedAt)
}

func (s *SectionServiceSuite) TestSaveDocumentsReplacesFileSet() {
	kept := id.NewFileID()
	removed := id.NewFileID()
	added := id.NewFileID()

	record := s.reload()
	record.Sections = append(record.Sections, &models.Section{
		Key:    models.SectionDocuments,
		Status: models.SectionDraft,
		Files: []models.FileRef{
			{ID: kept, DisplayName: "id-card.png"},
			{ID: removed, DisplayName: "old-lease.pdf"},
		},
	})
	s.Require().NoError(s.store.Save(context.Background(), record))

	payload := models.SectionPayload{
		"files": []any{
			map[string]any{"id": kept.String(), "displayName": "id-card.png"},
			map[string]any{"id": added.String(), "displayName": "new-lease.pdf"},
		},
	}
	updated, err := s.service.Save(s.ctx, s.record.ID, models.SectionDocuments, payload)
	s.Require().NoError(err)

	row := updated.Section(models.SectionDocuments)
	s.Require().NotNil(row)
	s.Equal([]models.FileRef{
		{ID: kept, DisplayName: "id-card.png"},
		{ID: added, DisplayName: "new-lease.pdf"},
	}, row.Files)
	s.Equal([]id.FileID{removed}, s.files.Deleted())
}

func (s *SectionServiceSuite) TestSaveAudit() {
	s.Run("active record emits one draft-saved entry", func() {
		_, err := s.service.Save(s.ctx, s.record.ID, models.SectionDescription,
			models.SectionPayload{"summary": "edited"})
		s.Require().NoError(err)

		entries, err := s.auditStore.ListByRecord(context.Background(), s.record.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.KindSectionDraftSaved, entries[0].Kind)
		s.Equal(s.owner, entries[0].ActorID)
		s.Equal(string(models.SectionDescription), entries[0].Metadata["section"])
	})

	s.Run("pending record emits nothing", func() {
		record := s.reload()
		record.Status = models.RecordStatusPending
		s.Require().NoError(s.store.Save(context.Background(), record))

		_, err := s.service.Save(s.ctx, s.record.ID, models.SectionDescription,
			models.SectionPayload{"summary": "still intake"})
		s.Require().NoError(err)

		entries, err := s.auditStore.ListByRecord(context.Background(), s.record.ID)
		s.Require().NoError(err)
		s.Len(entries, 1) // only the entry from the previous sub-test
	})
}

// =============================================================================
// Submission Tests
// =============================================================================

func (s *SectionServiceSuite) seedActions() (creatorA, creatorB id.UserID) {
	creatorA = id.NewUserID()
	creatorB = id.NewUserID()

	record := s.reload()
	record.Actions = []models.Action{
		{SectionKey: models.SectionNeeds, Status: models.ActionRequested, CreatedBy: creatorA},
		{SectionKey: models.SectionNeeds, Status: models.ActionRequested, CreatedBy: creatorB},
		{SectionKey: models.SectionNeeds, Status: models.ActionDeclined, CreatedBy: creatorA},
		{SectionKey: models.SectionContact, Status: models.ActionRequested, CreatedBy: creatorB},
	}
	s.Require().NoError(s.store.Save(context.Background(), record))
	return creatorA, creatorB
}

func (s *SectionServiceSuite) TestSubmitValidation() {
	s.Run("empty key list", func() {
		_, err := s.service.Submit(s.ctx, s.record.ID, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown section key", func() {
		_, err := s.service.Submit(s.ctx, s.record.ID, []models.SectionKey{"NOT_A_KEY"})
		s.True(dErrors.Is(err, dErrors.CodeSectionNotFound))
	})

	s.Run("ownership mismatch", func() {
		strangerCtx := requestcontext.WithUserID(context.Background(), s.stranger)
		_, err := s.service.Submit(strangerCtx, s.record.ID, []models.SectionKey{models.SectionDescription})
		s.True(dErrors.Is(err, dErrors.CodeRecordNotFound))
	})
}

func (s *SectionServiceSuite) TestSubmitNeverSavedSection() {
	updated, err := s.service.Submit(s.ctx, s.record.ID, []models.SectionKey{models.SectionContact})
	s.Require().NoError(err)

	row := updated.Section(models.SectionContact)
	s.Require().NotNil(row)
	s.Equal(models.SectionSubmitted, row.Status)
	s.Require().NotNil(row.SubmittedAt)
	s.Equal(s.now, *row.SubmittedAt)

	entries, err := s.auditStore.ListByRecord(context.Background(), s.record.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.KindSectionSubmitted, entries[0].Kind)
	s.Zero(s.emails.Sends())
}

func (s *SectionServiceSuite) TestSubmitSideEffects() {
	creatorA, creatorB := s.seedActions()

	updated, err := s.service.Submit(s.ctx, s.record.ID, []models.SectionKey{models.SectionNeeds})
	s.Require().NoError(err)

	needsRow := updated.Section(models.SectionNeeds)
	s.Require().NotNil(needsRow)
	s.Equal(models.SectionSubmitted, needsRow.Status)

	inReview := 0
	for _, action := range updated.Actions {
		switch {
		case action.SectionKey == models.SectionNeeds && action.Status == models.ActionInReview:
			inReview++
			s.Require().NotNil(action.SectionID)
			s.Equal(needsRow.ID, *action.SectionID)
		case action.SectionKey == models.SectionNeeds && action.Status == models.ActionDeclined:
			s.Nil(action.SectionID)
		case action.SectionKey == models.SectionContact:
			s.Equal(models.ActionRequested, action.Status)
		}
	}
	s.Equal(2, inReview)

	entries, err := s.auditStore.ListByRecord(context.Background(), s.record.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.KindSectionSubmitted, entries[0].Kind)
	s.Equal(audit.KindActionsMovedToReview, entries[1].Kind)
	s.Equal(2, entries[1].Metadata["count"])

	forA, err := s.notifyStore.ListByTarget(context.Background(), creatorA)
	s.Require().NoError(err)
	s.Len(forA, 1)
	forB, err := s.notifyStore.ListByTarget(context.Background(), creatorB)
	s.Require().NoError(err)
	s.Len(forB, 1)
	s.Equal(notify.AudienceActionCreator, forA[0].Audience)
	s.Equal(2, s.emails.Sends())
}

func (s *SectionServiceSuite) TestSubmitNotificationFailureDoesNotSurface() {
	s.seedActions()
	s.emails.fail = true

	updated, err := s.service.Submit(s.ctx, s.record.ID, []models.SectionKey{models.SectionNeeds})
	s.Require().NoError(err)
	s.Equal(models.SectionSubmitted, updated.Section(models.SectionNeeds).Status)

	// The commit stands even though every email failed.
	s.Equal(models.SectionSubmitted, s.reload().Section(models.SectionNeeds).Status)
}

func (s *SectionServiceSuite) TestSubmitMultipleKeys() {
	s.seedActions()

	updated, err := s.service.Submit(s.ctx, s.record.ID,
		[]models.SectionKey{models.SectionNeeds, models.SectionContact})
	s.Require().NoError(err)

	s.Equal(models.SectionSubmitted, updated.Section(models.SectionNeeds).Status)
	s.Equal(models.SectionSubmitted, updated.Section(models.SectionContact).Status)

	inReview := 0
	for _, action := range updated.Actions {
		if action.Status == models.ActionInReview {
			inReview++
		}
	}
	s.Equal(3, inReview)
	s.Equal(3, s.emails.Sends())

	entries, err := s.auditStore.ListByRecord(context.Background(), s.record.ID)
	s.Require().NoError(err)
	// Two submissions plus two transition summaries.
	s.Len(entries, 4)
}
