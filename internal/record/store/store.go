// Package store is the aggregate access facade: the only seam between the
// section engine and persistence. Implementations hand out deep copies, so a
// fetched record can be mutated freely inside a transaction and persisted as
// a whole.
package store

import (
	"context"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
)

// Store loads and persists whole case records.
//
// All methods return sentinel.ErrNotFound (optionally wrapped) when a record
// is missing; FindOwned also returns it when the record exists but is not
// owned by the given user, so callers cannot distinguish "absent" from "not
// yours".
type Store interface {
	// FindOwned loads the record for section operations, enforcing ownership.
	FindOwned(ctx context.Context, recordID id.RecordID, owner id.UserID) (*models.Record, error)

	// Create inserts a new record aggregate.
	Create(ctx context.Context, record *models.Record) error

	// Save persists the whole mutated aggregate. Surrogate ids of new
	// sections, dependency items, and actions are assigned here, on first
	// persistence.
	Save(ctx context.Context, record *models.Record) error

	// RunInTx runs fn inside one transaction. Every store call made through
	// the passed context joins the transaction; any error from fn rolls the
	// whole set of changes back.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AssignIDs stamps fresh surrogate ids onto aggregate children that have not
// been persisted yet. Shared by implementations so id assignment behaves the
// same in memory and in PostgreSQL.
func AssignIDs(record *models.Record) {
	for _, section := range record.Sections {
		if section.ID.IsNil() {
			section.ID = id.NewSectionID()
		}
	}
	for name, items := range record.Dependencies {
		for i := range items {
			if items[i].ID.IsNil() {
				items[i].ID = id.NewItemID()
			}
		}
		record.Dependencies[name] = items
	}
	for i := range record.Actions {
		if record.Actions[i].ID.IsNil() {
			record.Actions[i].ID = id.NewActionID()
		}
	}
}
