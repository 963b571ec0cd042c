package models

// fieldAccessor binds a schema-addressable field name to typed access on the
// record. The table below is the closed set of scalar fields the section
// engine can read or write; the schema registry validates against it at
// startup so a typo in a schema fails the process, not a request.
type fieldAccessor struct {
	get func(*Record) string
	set func(*Record, string)
}

var scalarFields = map[string]fieldAccessor{
	"name": {
		get: func(r *Record) string { return r.Name },
		set: func(r *Record, v string) { r.Name = v },
	},
	"summary": {
		get: func(r *Record) string { return r.Summary },
		set: func(r *Record, v string) { r.Summary = v },
	},
	"story": {
		get: func(r *Record) string { return r.Story },
		set: func(r *Record, v string) { r.Story = v },
	},
	"background": {
		get: func(r *Record) string { return r.Background },
		set: func(r *Record, v string) { r.Background = v },
	},
	"contactName": {
		get: func(r *Record) string { return r.ContactName },
		set: func(r *Record, v string) { r.ContactName = v },
	},
	"contactEmail": {
		get: func(r *Record) string { return r.ContactEmail },
		set: func(r *Record, v string) { r.ContactEmail = v },
	},
	"contactPhone": {
		get: func(r *Record) string { return r.ContactPhone },
		set: func(r *Record, v string) { r.ContactPhone = v },
	},
	"address": {
		get: func(r *Record) string { return r.Address },
		set: func(r *Record, v string) { r.Address = v },
	},
	"city": {
		get: func(r *Record) string { return r.City },
		set: func(r *Record, v string) { r.City = v },
	},
	"householdSize": {
		get: func(r *Record) string { return r.HouseholdSize },
		set: func(r *Record, v string) { r.HouseholdSize = v },
	},
	"housingType": {
		get: func(r *Record) string { return r.HousingType },
		set: func(r *Record, v string) { r.HousingType = v },
	},
	"needsNote": {
		get: func(r *Record) string { return r.NeedsNote },
		set: func(r *Record, v string) { r.NeedsNote = v },
	},
}

// KnownField reports whether name is a schema-addressable scalar field.
func KnownField(name string) bool {
	_, ok := scalarFields[name]
	return ok
}

// Field reads a scalar field by schema name.
func (r *Record) Field(name string) (string, bool) {
	acc, ok := scalarFields[name]
	if !ok {
		return "", false
	}
	return acc.get(r), true
}

// SetField writes a scalar field by schema name. Unknown names are ignored
// and reported; the registry guarantees schemas never carry them.
func (r *Record) SetField(name, value string) bool {
	acc, ok := scalarFields[name]
	if !ok {
		return false
	}
	acc.set(r, value)
	return true
}
