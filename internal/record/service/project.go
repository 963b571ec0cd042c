package service

import (
	"context"
	"time"

	"casefile/internal/record/models"
	"casefile/internal/record/reconcile"
	"casefile/internal/record/schema"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
)

// Project returns the schema-filtered view of one section for the acting
// user's record. A section that was never saved projects with NOT_STARTED
// metadata and whatever scalar data the record already carries.
func (s *Service) Project(ctx context.Context, recordID id.RecordID, key models.SectionKey) (*models.SectionView, error) {
	ctx, span := s.tracer.Start(ctx, "record.project")
	defer span.End()

	started := time.Now()
	defer func() { s.metrics.ObserveProjection(time.Since(started).Seconds()) }()

	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record id is required")
	}
	if key == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "section key is required")
	}
	sec, err := s.schemas.Read(key)
	if err != nil {
		return nil, err
	}

	record, err := s.findOwned(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if view, ok := s.cache.Get(ctx, recordID, key); ok {
		s.metrics.ObserveCache(true)
		return view, nil
	}
	s.metrics.ObserveCache(false)

	view, err := s.project(ctx, record, sec)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.cache.Set(ctx, recordID, key, view)
	return view, nil
}

// project assembles one SectionView from the loaded aggregate.
func (s *Service) project(ctx context.Context, record *models.Record, sec schema.Section) (*models.SectionView, error) {
	data := make(map[string]any)

	for _, field := range sec.Fields {
		if v, ok := record.Field(field); ok {
			data[field] = v
		}
	}

	for _, name := range sec.TypeCollections {
		data[name] = reconcile.ActiveCodes(record.TypeCollections[name])
	}

	for _, desc := range sec.Dependencies {
		items, err := s.projectDependencies(ctx, record.Dependencies[desc.Name], desc)
		if err != nil {
			return nil, err
		}
		data[desc.Name] = items
	}

	var meta models.SectionMeta
	if row := record.Section(sec.Key); row != nil {
		meta = row.Meta()
		if sec.Files {
			resolved, err := s.resolveFiles(ctx, row.Files)
			if err != nil {
				return nil, err
			}
			data["files"] = resolved
		}
	} else {
		meta = models.NotStartedMeta(sec.Key)
		if sec.Files {
			data["files"] = []map[string]any{}
		}
	}

	return &models.SectionView{Section: meta, Data: data}, nil
}

// projectDependencies expands the non-deleted items of one dependency
// collection, filtered to the descriptor's allow-list.
func (s *Service) projectDependencies(ctx context.Context, items []models.DependencyItem, desc schema.Dependency) ([]map[string]any, error) {
	active := reconcile.ActiveItems(items)
	out := make([]map[string]any, 0, len(active))
	for _, item := range active {
		view := map[string]any{"id": item.ID.String()}
		for _, field := range desc.Fields {
			if v, ok := item.Fields[field]; ok {
				view[field] = v
			}
		}
		for _, name := range desc.Subtypes {
			view[name] = reconcile.ActiveCodes(item.Subtypes[name])
		}
		if desc.Files {
			resolved, err := s.resolveFiles(ctx, item.Files)
			if err != nil {
				return nil, err
			}
			view["files"] = resolved
		}
		out = append(out, view)
	}
	return out, nil
}

// resolveFiles turns stored file references into client-facing descriptors
// with short-lived download URLs.
func (s *Service) resolveFiles(ctx context.Context, refs []models.FileRef) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		url, err := s.files.DownloadURL(ctx, ref)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve download url for file "+ref.ID.String())
		}
		out = append(out, map[string]any{
			"id":          ref.ID.String(),
			"displayName": ref.DisplayName,
			"downloadUrl": url,
		})
	}
	return out, nil
}

// findOwned loads the acting user's record, translating store sentinels.
func (s *Service) findOwned(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	record, err := s.store.FindOwned(ctx, recordID, requestActor(ctx))
	if err != nil {
		return nil, storeErr(err)
	}
	return record, nil
}
