package models

import (
	"time"

	id "casefile/pkg/domain"
)

// TypeItem is one entry of a tagged collection. Identity is the type code,
// not a surrogate id: at most one non-deleted item exists per code.
type TypeItem struct {
	Code      string
	CreatedBy id.UserID
	UpdatedBy id.UserID
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the item has been soft-deleted.
func (t TypeItem) Deleted() bool { return t.DeletedAt != nil }

// FileRef points at an uploaded blob. The blob itself lives behind the file
// collaborator; the aggregate only stores the reference.
type FileRef struct {
	ID          id.FileID
	DisplayName string
}

// DependencyItem is one identity-keyed entry of a dependency collection. Its
// id is assigned on first persistence; payloads referencing an unknown id are
// rejected, never silently created.
type DependencyItem struct {
	ID        id.ItemID
	Fields    map[string]string
	Subtypes  map[string][]TypeItem
	Files     []FileRef
	CreatedBy id.UserID
	UpdatedBy id.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the item has been soft-deleted.
func (d DependencyItem) Deleted() bool { return d.DeletedAt != nil }

// Clone deep-copies the item so reconciliation can return fresh collections
// without aliasing caller-owned state.
func (d DependencyItem) Clone() DependencyItem {
	out := d
	if d.Fields != nil {
		out.Fields = make(map[string]string, len(d.Fields))
		for k, v := range d.Fields {
			out.Fields[k] = v
		}
	}
	if d.Subtypes != nil {
		out.Subtypes = make(map[string][]TypeItem, len(d.Subtypes))
		for name, items := range d.Subtypes {
			out.Subtypes[name] = append([]TypeItem(nil), items...)
		}
	}
	out.Files = append([]FileRef(nil), d.Files...)
	return out
}
