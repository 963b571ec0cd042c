package models

import (
	"fmt"

	id "casefile/pkg/domain"
)

// SectionPayload is a decoded client submission for one section. Only keys
// the write schema allow-lists are ever consulted; everything else is inert.
type SectionPayload map[string]any

// Has reports whether the payload carries the key at all. The reconcilers
// treat an absent key as "leave the collection untouched", which is distinct
// from an empty list ("delete everything").
func (p SectionPayload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// StringField returns the payload value for a scalar field, coercing JSON
// numbers and booleans to their string form. Returns false when the key is
// absent or the value is a structure.
func (p SectionPayload) StringField(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64, bool, int, int64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// Codes returns the payload value for a tagged collection: a flat list of
// type-code strings. Non-string entries are skipped.
func (p SectionPayload) Codes(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	codes := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			codes = append(codes, s)
		}
	}
	return codes, true
}

// Items returns the payload value for a dependency collection: a list of
// partial objects.
func (p SectionPayload) Items(key string) ([]map[string]any, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items, true
}

// FileRefs returns the payload value for a file set: a list of
// {id, displayName} objects. Entries with an unparseable id are dropped.
func (p SectionPayload) FileRefs(key string) ([]FileRef, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	refs := make([]FileRef, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		rawID, _ := m["id"].(string)
		fileID, err := id.ParseFileID(rawID)
		if err != nil {
			continue
		}
		name, _ := m["displayName"].(string)
		refs = append(refs, FileRef{ID: fileID, DisplayName: name})
	}
	return refs, true
}
