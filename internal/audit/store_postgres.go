package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "casefile/pkg/domain"
	"casefile/pkg/platform/tx"
)

// PostgresStore appends audit entries. When the context carries an open
// transaction (the section writer's), the append joins it, so audit rows
// commit and roll back with the mutation they describe.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
} {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO audit_entries (actor_id, record_id, kind, metadata, occurred_at)
		VALUES ($1,$2,$3,$4,$5)`,
		entry.ActorID.String(), entry.RecordID.String(), string(entry.Kind),
		metadata, entry.OccurredAt); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]Entry, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT actor_id, record_id, kind, metadata, occurred_at
		FROM audit_entries WHERE record_id = $1 ORDER BY id`,
		recordID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var actorID, rawRecordID, kind string
		var metadata []byte
		entry := Entry{}
		if err := rows.Scan(&actorID, &rawRecordID, &kind, &metadata, &entry.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		actor, err := id.ParseUserID(actorID)
		if err != nil {
			return nil, err
		}
		record, err := id.ParseRecordID(rawRecordID)
		if err != nil {
			return nil, err
		}
		entry.ActorID = actor
		entry.RecordID = record
		entry.Kind = Kind(kind)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
