// Package models defines the aggregate case record and its nested
// collections. The record is the aggregate root: it exclusively owns its
// sections, tagged type collections, dependency collections, actions, and
// (transitively) their file references.
package models

import (
	"time"

	id "casefile/pkg/domain"
)

// RecordStatus is the overall lifecycle stage of a case record.
type RecordStatus string

const (
	// RecordStatusPending is the initial creation stage. Section drafts saved
	// while pending are not audited.
	RecordStatusPending RecordStatus = "pending"
	// RecordStatusActive means the record has passed intake.
	RecordStatusActive RecordStatus = "active"
	// RecordStatusClosed means the case is no longer worked on.
	RecordStatusClosed RecordStatus = "closed"
)

// Record is the aggregate root for one case.
type Record struct {
	ID      id.RecordID
	OwnerID id.UserID
	Status  RecordStatus

	// Scalar section fields. The closed set of schema-addressable fields is
	// declared in fields.go; anything not listed there is invisible to the
	// section engine.
	Name          string
	Summary       string
	Story         string
	Background    string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Address       string
	City          string
	HouseholdSize string
	HousingType   string
	NeedsNote     string

	Sections []*Section

	// TypeCollections holds the record-level tagged collections, keyed by
	// collection name (e.g. "needTypes").
	TypeCollections map[string][]TypeItem

	// Dependencies holds the identity-keyed dependency collections, keyed by
	// collection name (e.g. "subgroups").
	Dependencies map[string][]DependencyItem

	Actions []Action

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Section returns the stored section row for key, or nil when the section has
// never been saved (implicitly NOT_STARTED).
func (r *Record) Section(key SectionKey) *Section {
	for _, s := range r.Sections {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// ActionsForSection returns the actions owned by the given section key.
func (r *Record) ActionsForSection(key SectionKey) []*Action {
	var out []*Action
	for i := range r.Actions {
		if r.Actions[i].SectionKey == key {
			out = append(out, &r.Actions[i])
		}
	}
	return out
}

// Clone returns a deep copy of the record. Stores hand out clones so callers
// never alias store-owned state, and the service mutates a clone inside the
// transaction before persisting it.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r

	out.Sections = make([]*Section, len(r.Sections))
	for i, s := range r.Sections {
		cp := *s
		cp.Files = append([]FileRef(nil), s.Files...)
		out.Sections[i] = &cp
	}

	if r.TypeCollections != nil {
		out.TypeCollections = make(map[string][]TypeItem, len(r.TypeCollections))
		for name, items := range r.TypeCollections {
			out.TypeCollections[name] = append([]TypeItem(nil), items...)
		}
	}

	if r.Dependencies != nil {
		out.Dependencies = make(map[string][]DependencyItem, len(r.Dependencies))
		for name, items := range r.Dependencies {
			cp := make([]DependencyItem, len(items))
			for i := range items {
				cp[i] = items[i].Clone()
			}
			out.Dependencies[name] = cp
		}
	}

	out.Actions = append([]Action(nil), r.Actions...)
	return &out
}
