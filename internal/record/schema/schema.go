// Package schema is the declarative description of every section: which
// scalar fields it may read and write, which tagged collections and
// dependency collections it covers, and whether it carries files. The
// registry is built once at startup from the static tables in sections.go and
// validated against the record's closed field set, so section shapes are
// checked before the first request, not per request.
package schema

import (
	"fmt"
	"sort"

	"casefile/internal/record/models"
	dErrors "casefile/pkg/domain-errors"
)

// Dependency describes one identity-keyed dependency collection a section
// exposes.
type Dependency struct {
	// Name is the collection key on the record and in payloads.
	Name string
	// Fields is the allow-list applied to item fields in both directions.
	Fields []string
	// Files marks whether items of this collection may own file references.
	Files bool
	// Subtypes names the tagged collections nested inside each item.
	Subtypes []string
}

// Section describes one direction (read or write) of a section.
type Section struct {
	Key models.SectionKey
	// Fields is the scalar allow-list.
	Fields []string
	// TypeCollections names the record-level tagged collections.
	TypeCollections []string
	// Dependencies describes the dependency collections.
	Dependencies []Dependency
	// Files marks whether the section itself owns file references.
	Files bool
}

// HasTypeCollection reports whether the section declares the named tagged
// collection.
func (s Section) HasTypeCollection(name string) bool {
	for _, c := range s.TypeCollections {
		if c == name {
			return true
		}
	}
	return false
}

// Registry resolves section keys to their read and write schemas. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	read  map[models.SectionKey]Section
	write map[models.SectionKey]Section
}

// New builds the registry from the static production tables. It panics on an
// invalid table: a broken schema set is a programming error that must stop
// the process at startup.
func New() *Registry {
	r, err := NewFromTables(readTable, writeTable)
	if err != nil {
		panic(fmt.Sprintf("section schema tables are invalid: %v", err))
	}
	return r
}

// NewFromTables builds a registry from explicit tables. Tests use it to
// substitute schemas without touching process-wide state.
func NewFromTables(read, write []Section) (*Registry, error) {
	r := &Registry{
		read:  make(map[models.SectionKey]Section, len(read)),
		write: make(map[models.SectionKey]Section, len(write)),
	}
	for _, s := range read {
		if err := validateSection(s); err != nil {
			return nil, fmt.Errorf("read schema %q: %w", s.Key, err)
		}
		if _, dup := r.read[s.Key]; dup {
			return nil, fmt.Errorf("read schema %q declared twice", s.Key)
		}
		r.read[s.Key] = s
	}
	for _, s := range write {
		if err := validateSection(s); err != nil {
			return nil, fmt.Errorf("write schema %q: %w", s.Key, err)
		}
		if _, dup := r.write[s.Key]; dup {
			return nil, fmt.Errorf("write schema %q declared twice", s.Key)
		}
		r.write[s.Key] = s
	}
	return r, nil
}

func validateSection(s Section) error {
	if s.Key == "" {
		return fmt.Errorf("empty section key")
	}
	for _, f := range s.Fields {
		if !models.KnownField(f) {
			return fmt.Errorf("field %q is not a record field", f)
		}
	}
	seen := make(map[string]struct{})
	for _, c := range s.TypeCollections {
		if c == "" {
			return fmt.Errorf("empty tagged collection name")
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("tagged collection %q declared twice", c)
		}
		seen[c] = struct{}{}
	}
	for _, d := range s.Dependencies {
		if d.Name == "" {
			return fmt.Errorf("empty dependency collection name")
		}
		if len(d.Fields) == 0 {
			return fmt.Errorf("dependency collection %q has no allow-listed fields", d.Name)
		}
		for _, sub := range d.Subtypes {
			if sub == "" {
				return fmt.Errorf("dependency collection %q has an empty subtype name", d.Name)
			}
		}
	}
	return nil
}

// Read resolves the read-side schema for key.
func (r *Registry) Read(key models.SectionKey) (Section, error) {
	s, ok := r.read[key]
	if !ok {
		return Section{}, dErrors.New(dErrors.CodeSectionNotFound, "unknown section: "+string(key))
	}
	return s, nil
}

// Write resolves the write-side schema for key.
func (r *Registry) Write(key models.SectionKey) (Section, error) {
	s, ok := r.write[key]
	if !ok {
		return Section{}, dErrors.New(dErrors.CodeSectionNotFound, "unknown section: "+string(key))
	}
	return s, nil
}

// Keys returns every section key the write table declares, sorted for stable
// iteration.
func (r *Registry) Keys() []models.SectionKey {
	keys := make([]models.SectionKey, 0, len(r.write))
	for k := range r.write {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
