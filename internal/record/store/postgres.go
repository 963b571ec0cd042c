package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
	"casefile/pkg/platform/sentinel"
	"casefile/pkg/platform/tx"
)

// Postgres persists whole case aggregates. Saving rewrites the aggregate's
// child rows inside the surrounding transaction; soft-deleted items are rows
// like any other, so the rewrite preserves them.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// dbtx abstracts *sql.DB and *sql.Tx so queries join an open transaction
// when the context carries one.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbtx {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.With(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Postgres) FindOwned(ctx context.Context, recordID id.RecordID, owner id.UserID) (*models.Record, error) {
	record := &models.Record{}
	var ownerID, status string
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT owner_id, status, name, summary, story, background,
		       contact_name, contact_email, contact_phone, address, city,
		       household_size, housing_type, needs_note, created_at, updated_at
		FROM records
		WHERE id = $1 AND owner_id = $2`,
		recordID.String(), owner.String(),
	).Scan(
		&ownerID, &status, &record.Name, &record.Summary, &record.Story,
		&record.Background, &record.ContactName, &record.ContactEmail,
		&record.ContactPhone, &record.Address, &record.City,
		&record.HouseholdSize, &record.HousingType, &record.NeedsNote,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}

	record.ID = recordID
	record.OwnerID = owner
	record.Status = models.RecordStatus(status)

	if err := s.loadSections(ctx, record); err != nil {
		return nil, err
	}
	if err := s.loadTypeItems(ctx, record); err != nil {
		return nil, err
	}
	if err := s.loadDependencies(ctx, record); err != nil {
		return nil, err
	}
	if err := s.loadActions(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Postgres) loadSections(ctx context.Context, record *models.Record) error {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, key, status, submitted_at, created_at, updated_at
		FROM sections WHERE record_id = $1 ORDER BY created_at`,
		record.ID.String())
	if err != nil {
		return fmt.Errorf("load sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawID, key, status string
		var submittedAt sql.NullTime
		section := &models.Section{}
		if err := rows.Scan(&rawID, &key, &status, &submittedAt, &section.CreatedAt, &section.UpdatedAt); err != nil {
			return fmt.Errorf("scan section: %w", err)
		}
		sectionID, err := id.ParseSectionID(rawID)
		if err != nil {
			return err
		}
		section.ID = sectionID
		section.Key = models.SectionKey(key)
		section.Status = models.SectionStatus(status)
		if submittedAt.Valid {
			t := submittedAt.Time
			section.SubmittedAt = &t
		}
		record.Sections = append(record.Sections, section)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sections: %w", err)
	}

	for _, section := range record.Sections {
		files, err := s.loadFiles(ctx,
			`SELECT file_id, display_name FROM section_files WHERE section_id = $1 ORDER BY position`,
			section.ID.String())
		if err != nil {
			return err
		}
		section.Files = files
	}
	return nil
}

func (s *Postgres) loadFiles(ctx context.Context, query, ownerID string) ([]models.FileRef, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	defer rows.Close()

	var files []models.FileRef
	for rows.Next() {
		var rawID, name string
		if err := rows.Scan(&rawID, &name); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		fileID, err := id.ParseFileID(rawID)
		if err != nil {
			return nil, err
		}
		files = append(files, models.FileRef{ID: fileID, DisplayName: name})
	}
	return files, rows.Err()
}

func (s *Postgres) loadTypeItems(ctx context.Context, record *models.Record) error {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT collection, code, created_by, updated_by, created_at, deleted_at
		FROM type_items WHERE record_id = $1 ORDER BY collection, position`,
		record.ID.String())
	if err != nil {
		return fmt.Errorf("load type items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var collection string
		item, err := scanTypeItem(rows, &collection)
		if err != nil {
			return err
		}
		if record.TypeCollections == nil {
			record.TypeCollections = make(map[string][]models.TypeItem)
		}
		record.TypeCollections[collection] = append(record.TypeCollections[collection], item)
	}
	return rows.Err()
}

func scanTypeItem(rows *sql.Rows, collection *string) (models.TypeItem, error) {
	var item models.TypeItem
	var createdBy, updatedBy string
	var deletedAt sql.NullTime
	if err := rows.Scan(collection, &item.Code, &createdBy, &updatedBy, &item.CreatedAt, &deletedAt); err != nil {
		return item, fmt.Errorf("scan type item: %w", err)
	}
	cb, err := id.ParseUserID(createdBy)
	if err != nil {
		return item, err
	}
	ub, err := id.ParseUserID(updatedBy)
	if err != nil {
		return item, err
	}
	item.CreatedBy = cb
	item.UpdatedBy = ub
	if deletedAt.Valid {
		t := deletedAt.Time
		item.DeletedAt = &t
	}
	return item, nil
}

func (s *Postgres) loadDependencies(ctx context.Context, record *models.Record) error {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, collection, fields, created_by, updated_by, created_at, updated_at, deleted_at
		FROM dependency_items WHERE record_id = $1 ORDER BY collection, position`,
		record.ID.String())
	if err != nil {
		return fmt.Errorf("load dependency items: %w", err)
	}
	defer rows.Close()

	type placed struct {
		collection string
		item       models.DependencyItem
	}
	var loaded []placed
	for rows.Next() {
		var rawID, collection, createdBy, updatedBy string
		var fieldsJSON []byte
		var deletedAt sql.NullTime
		item := models.DependencyItem{}
		if err := rows.Scan(&rawID, &collection, &fieldsJSON, &createdBy, &updatedBy,
			&item.CreatedAt, &item.UpdatedAt, &deletedAt); err != nil {
			return fmt.Errorf("scan dependency item: %w", err)
		}
		itemID, err := id.ParseItemID(rawID)
		if err != nil {
			return err
		}
		cb, err := id.ParseUserID(createdBy)
		if err != nil {
			return err
		}
		ub, err := id.ParseUserID(updatedBy)
		if err != nil {
			return err
		}
		item.ID = itemID
		item.CreatedBy = cb
		item.UpdatedBy = ub
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &item.Fields); err != nil {
				return fmt.Errorf("decode dependency fields: %w", err)
			}
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			item.DeletedAt = &t
		}
		loaded = append(loaded, placed{collection: collection, item: item})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate dependency items: %w", err)
	}

	for i := range loaded {
		item := &loaded[i].item
		if err := s.loadItemSubtypes(ctx, item); err != nil {
			return err
		}
		files, err := s.loadFiles(ctx,
			`SELECT file_id, display_name FROM dependency_item_files WHERE item_id = $1 ORDER BY position`,
			item.ID.String())
		if err != nil {
			return err
		}
		item.Files = files
		if record.Dependencies == nil {
			record.Dependencies = make(map[string][]models.DependencyItem)
		}
		record.Dependencies[loaded[i].collection] = append(record.Dependencies[loaded[i].collection], *item)
	}
	return nil
}

func (s *Postgres) loadItemSubtypes(ctx context.Context, item *models.DependencyItem) error {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT collection, code, created_by, updated_by, created_at, deleted_at
		FROM dependency_item_types WHERE item_id = $1 ORDER BY collection, position`,
		item.ID.String())
	if err != nil {
		return fmt.Errorf("load item subtypes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var collection string
		sub, err := scanTypeItem(rows, &collection)
		if err != nil {
			return err
		}
		if item.Subtypes == nil {
			item.Subtypes = make(map[string][]models.TypeItem)
		}
		item.Subtypes[collection] = append(item.Subtypes[collection], sub)
	}
	return rows.Err()
}

func (s *Postgres) loadActions(ctx context.Context, record *models.Record) error {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, section_key, section_id, status, created_by, created_at, updated_at
		FROM actions WHERE record_id = $1 ORDER BY created_at`,
		record.ID.String())
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawID, key, status, createdBy string
		var sectionID sql.NullString
		action := models.Action{}
		if err := rows.Scan(&rawID, &key, &sectionID, &status, &createdBy,
			&action.CreatedAt, &action.UpdatedAt); err != nil {
			return fmt.Errorf("scan action: %w", err)
		}
		actionID, err := id.ParseActionID(rawID)
		if err != nil {
			return err
		}
		cb, err := id.ParseUserID(createdBy)
		if err != nil {
			return err
		}
		action.ID = actionID
		action.SectionKey = models.SectionKey(key)
		action.Status = models.ActionStatus(status)
		action.CreatedBy = cb
		if sectionID.Valid {
			sid, err := id.ParseSectionID(sectionID.String)
			if err != nil {
				return err
			}
			action.SectionID = &sid
		}
		record.Actions = append(record.Actions, action)
	}
	return rows.Err()
}

func (s *Postgres) Create(ctx context.Context, record *models.Record) error {
	AssignIDs(record)
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO records (
			id, owner_id, status, name, summary, story, background,
			contact_name, contact_email, contact_phone, address, city,
			household_size, housing_type, needs_note, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		record.ID.String(), record.OwnerID.String(), string(record.Status),
		record.Name, record.Summary, record.Story, record.Background,
		record.ContactName, record.ContactEmail, record.ContactPhone,
		record.Address, record.City, record.HouseholdSize, record.HousingType,
		record.NeedsNote, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return s.saveChildren(ctx, record)
}

func (s *Postgres) Save(ctx context.Context, record *models.Record) error {
	AssignIDs(record)
	result, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE records SET
			status = $2, name = $3, summary = $4, story = $5, background = $6,
			contact_name = $7, contact_email = $8, contact_phone = $9,
			address = $10, city = $11, household_size = $12, housing_type = $13,
			needs_note = $14, updated_at = $15
		WHERE id = $1`,
		record.ID.String(), string(record.Status), record.Name, record.Summary,
		record.Story, record.Background, record.ContactName, record.ContactEmail,
		record.ContactPhone, record.Address, record.City, record.HouseholdSize,
		record.HousingType, record.NeedsNote, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}

	// Aggregate rewrite: child rows are replaced wholesale inside the
	// surrounding transaction. Section and item ids are stable, so rows
	// reappear under the same identity.
	for _, table := range []string{"sections", "type_items", "dependency_items", "actions"} {
		if _, err := s.conn(ctx).ExecContext(ctx,
			`DELETE FROM `+table+` WHERE record_id = $1`, record.ID.String()); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return s.saveChildren(ctx, record)
}

func (s *Postgres) saveChildren(ctx context.Context, record *models.Record) error {
	for _, section := range record.Sections {
		var submittedAt sql.NullTime
		if section.SubmittedAt != nil {
			submittedAt = sql.NullTime{Time: *section.SubmittedAt, Valid: true}
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO sections (id, record_id, key, status, submitted_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			section.ID.String(), record.ID.String(), string(section.Key),
			string(section.Status), submittedAt, section.CreatedAt, section.UpdatedAt); err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
		for pos, file := range section.Files {
			if _, err := s.conn(ctx).ExecContext(ctx, `
				INSERT INTO section_files (section_id, file_id, display_name, position)
				VALUES ($1,$2,$3,$4)`,
				section.ID.String(), file.ID.String(), file.DisplayName, pos); err != nil {
				return fmt.Errorf("insert section file: %w", err)
			}
		}
	}

	for collection, items := range record.TypeCollections {
		for pos, item := range items {
			if err := s.insertTypeItem(ctx, `
				INSERT INTO type_items (record_id, collection, code, position, created_by, updated_by, created_at, deleted_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				record.ID.String(), collection, item, pos); err != nil {
				return err
			}
		}
	}

	for collection, items := range record.Dependencies {
		for pos, item := range items {
			fieldsJSON, err := json.Marshal(item.Fields)
			if err != nil {
				return fmt.Errorf("encode dependency fields: %w", err)
			}
			var deletedAt sql.NullTime
			if item.DeletedAt != nil {
				deletedAt = sql.NullTime{Time: *item.DeletedAt, Valid: true}
			}
			if _, err := s.conn(ctx).ExecContext(ctx, `
				INSERT INTO dependency_items (id, record_id, collection, position, fields, created_by, updated_by, created_at, updated_at, deleted_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				item.ID.String(), record.ID.String(), collection, pos, fieldsJSON,
				item.CreatedBy.String(), item.UpdatedBy.String(),
				item.CreatedAt, item.UpdatedAt, deletedAt); err != nil {
				return fmt.Errorf("insert dependency item: %w", err)
			}
			for subCollection, subItems := range item.Subtypes {
				for subPos, subItem := range subItems {
					if err := s.insertTypeItem(ctx, `
						INSERT INTO dependency_item_types (item_id, collection, code, position, created_by, updated_by, created_at, deleted_at)
						VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
						item.ID.String(), subCollection, subItem, subPos); err != nil {
						return err
					}
				}
			}
			for filePos, file := range item.Files {
				if _, err := s.conn(ctx).ExecContext(ctx, `
					INSERT INTO dependency_item_files (item_id, file_id, display_name, position)
					VALUES ($1,$2,$3,$4)`,
					item.ID.String(), file.ID.String(), file.DisplayName, filePos); err != nil {
					return fmt.Errorf("insert dependency file: %w", err)
				}
			}
		}
	}

	for _, action := range record.Actions {
		var sectionID sql.NullString
		if action.SectionID != nil {
			sectionID = sql.NullString{String: action.SectionID.String(), Valid: true}
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO actions (id, record_id, section_key, section_id, status, created_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			action.ID.String(), record.ID.String(), string(action.SectionKey), sectionID,
			string(action.Status), action.CreatedBy.String(),
			action.CreatedAt, action.UpdatedAt); err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
	}
	return nil
}

func (s *Postgres) insertTypeItem(ctx context.Context, query, ownerID, collection string, item models.TypeItem, pos int) error {
	var deletedAt sql.NullTime
	if item.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *item.DeletedAt, Valid: true}
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query,
		ownerID, collection, item.Code, pos,
		item.CreatedBy.String(), item.UpdatedBy.String(),
		item.CreatedAt, deletedAt); err != nil {
		return fmt.Errorf("insert type item: %w", err)
	}
	return nil
}
