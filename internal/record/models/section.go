package models

import (
	"time"

	id "casefile/pkg/domain"
)

// SectionKey names an independently-submittable slice of the record. The set
// of valid keys is closed; the schema registry rejects anything else.
type SectionKey string

const (
	SectionDescription SectionKey = "DESCRIPTION"
	SectionContact     SectionKey = "CONTACT"
	SectionNeeds       SectionKey = "NEEDS"
	SectionHousehold   SectionKey = "HOUSEHOLD"
	SectionDocuments   SectionKey = "DOCUMENTS"
)

// SectionStatus is the per-section lifecycle state.
type SectionStatus string

const (
	// SectionNotStarted is the implicit state of a section with no stored row.
	SectionNotStarted SectionStatus = "NOT_STARTED"
	// SectionDraft means the section has been saved at least once.
	SectionDraft SectionStatus = "DRAFT"
	// SectionSubmitted means the section was explicitly submitted. A later
	// save moves it back to DRAFT (re-edit reopens the section for review).
	SectionSubmitted SectionStatus = "SUBMITTED"
)

// Section is the stored row backing one saved section. Rows are created on
// first save (or first submission) and never hard-deleted.
type Section struct {
	ID          id.SectionID
	Key         SectionKey
	Status      SectionStatus
	Files       []FileRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
}

// SectionMeta is the read-side view of a section's lifecycle state. It covers
// sections that have never been saved, which have no row to expose.
type SectionMeta struct {
	Key         SectionKey     `json:"key"`
	Status      SectionStatus  `json:"status"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
}

// Meta projects the stored row into its read-side form.
func (s *Section) Meta() SectionMeta {
	updated := s.UpdatedAt
	return SectionMeta{
		Key:         s.Key,
		Status:      s.Status,
		UpdatedAt:   &updated,
		SubmittedAt: s.SubmittedAt,
	}
}

// NotStartedMeta is the implicit metadata for a never-saved section.
func NotStartedMeta(key SectionKey) SectionMeta {
	return SectionMeta{Key: key, Status: SectionNotStarted}
}

// SectionView is the projected, schema-filtered view of one section.
type SectionView struct {
	Section SectionMeta    `json:"section"`
	Data    map[string]any `json:"data"`
}
