package schema

import "casefile/internal/record/models"

// Tagged and dependency collection names used by the production schemas.
const (
	CollectionNeedTypes     = "needTypes"
	CollectionIncomeSources = "incomeSources"
	CollectionSubgroups     = "subgroups"
)

// writeTable declares what each section accepts on save. The read table
// mirrors it; keeping the two separate preserves the round-trip seam (read
// with one schema, write back with its sibling) without sharing slices.
var writeTable = []Section{
	{
		Key:    models.SectionDescription,
		Fields: []string{"summary", "story", "background"},
	},
	{
		Key:    models.SectionContact,
		Fields: []string{"contactName", "contactEmail", "contactPhone", "address", "city"},
	},
	{
		Key:             models.SectionNeeds,
		Fields:          []string{"needsNote"},
		TypeCollections: []string{CollectionNeedTypes},
		Dependencies: []Dependency{
			{
				Name:     CollectionSubgroups,
				Fields:   []string{"name", "headcount", "note"},
				Subtypes: []string{CollectionNeedTypes},
			},
		},
	},
	{
		Key:             models.SectionHousehold,
		Fields:          []string{"householdSize", "housingType"},
		TypeCollections: []string{CollectionIncomeSources},
	},
	{
		Key:   models.SectionDocuments,
		Files: true,
	},
}

var readTable = []Section{
	{
		Key:    models.SectionDescription,
		Fields: []string{"summary", "story", "background"},
	},
	{
		Key:    models.SectionContact,
		Fields: []string{"contactName", "contactEmail", "contactPhone", "address", "city"},
	},
	{
		Key:             models.SectionNeeds,
		Fields:          []string{"needsNote"},
		TypeCollections: []string{CollectionNeedTypes},
		Dependencies: []Dependency{
			{
				Name:     CollectionSubgroups,
				Fields:   []string{"name", "headcount", "note"},
				Subtypes: []string{CollectionNeedTypes},
			},
		},
	},
	{
		Key:             models.SectionHousehold,
		Fields:          []string{"householdSize", "housingType"},
		TypeCollections: []string{CollectionIncomeSources},
	},
	{
		Key:   models.SectionDocuments,
		Files: true,
	},
}
