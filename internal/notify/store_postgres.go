package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "casefile/pkg/domain"
)

// PostgresStore persists in-app notifications. Notification writes are
// post-commit by design, so this store never joins the section writer's
// transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, n Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("encode notification metadata: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (actor_id, audience, record_id, context_type, context_id, subject_id, metadata, target_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ActorID.String(), string(n.Audience), n.RecordID.String(),
		n.ContextType, n.ContextID, n.SubjectID, metadata,
		n.TargetID.String(), n.CreatedAt); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTarget(ctx context.Context, target id.UserID) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, audience, record_id, context_type, context_id, subject_id, metadata, target_id, created_at
		FROM notifications WHERE target_id = $1 ORDER BY id`,
		target.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var actorID, audience, recordID, targetID string
		var metadata []byte
		n := Notification{}
		if err := rows.Scan(&actorID, &audience, &recordID, &n.ContextType,
			&n.ContextID, &n.SubjectID, &metadata, &targetID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		actor, err := id.ParseUserID(actorID)
		if err != nil {
			return nil, err
		}
		record, err := id.ParseRecordID(recordID)
		if err != nil {
			return nil, err
		}
		targetUser, err := id.ParseUserID(targetID)
		if err != nil {
			return nil, err
		}
		n.ActorID = actor
		n.Audience = Audience(audience)
		n.RecordID = record
		n.TargetID = targetUser
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, fmt.Errorf("decode notification metadata: %w", err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
