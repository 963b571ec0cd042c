// Package domain holds the typed identifiers shared across the service.
// Distinct UUID wrapper types keep record, section, item, and user ids from
// being swapped at call sites; the compiler enforces what a review would miss.
package domain

import (
	"github.com/google/uuid"

	dErrors "casefile/pkg/domain-errors"
)

type (
	// RecordID identifies an aggregate case record.
	RecordID uuid.UUID
	// SectionID identifies a stored section row.
	SectionID uuid.UUID
	// ItemID identifies a dependency collection item.
	ItemID uuid.UUID
	// FileID identifies an uploaded file blob.
	FileID uuid.UUID
	// ActionID identifies a support action.
	ActionID uuid.UUID
	// UserID identifies an acting user.
	UserID uuid.UUID
)

func (id RecordID) String() string  { return uuid.UUID(id).String() }
func (id SectionID) String() string { return uuid.UUID(id).String() }
func (id ItemID) String() string    { return uuid.UUID(id).String() }
func (id FileID) String() string    { return uuid.UUID(id).String() }
func (id ActionID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SectionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id FileID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewRecordID returns a fresh random record id.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewSectionID returns a fresh random section id.
func NewSectionID() SectionID { return SectionID(uuid.New()) }

// NewItemID returns a fresh random dependency item id.
func NewItemID() ItemID { return ItemID(uuid.New()) }

// NewFileID returns a fresh random file id.
func NewFileID() FileID { return FileID(uuid.New()) }

// NewActionID returns a fresh random action id.
func NewActionID() ActionID { return ActionID(uuid.New()) }

// NewUserID returns a fresh random user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// parseUUID enforces the shared invariant: ids must be valid, non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return u, nil
}

// ParseRecordID parses and validates a record id at a trust boundary.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record")
	return RecordID(u), err
}

// ParseSectionID parses and validates a section id at a trust boundary.
func ParseSectionID(s string) (SectionID, error) {
	u, err := parseUUID(s, "section")
	return SectionID(u), err
}

// ParseItemID parses and validates a dependency item id at a trust boundary.
func ParseItemID(s string) (ItemID, error) {
	u, err := parseUUID(s, "item")
	return ItemID(u), err
}

// ParseFileID parses and validates a file id at a trust boundary.
func ParseFileID(s string) (FileID, error) {
	u, err := parseUUID(s, "file")
	return FileID(u), err
}

// ParseActionID parses and validates an action id at a trust boundary.
func ParseActionID(s string) (ActionID, error) {
	u, err := parseUUID(s, "action")
	return ActionID(u), err
}

// ParseUserID parses and validates a user id at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}
