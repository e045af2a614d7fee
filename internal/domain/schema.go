package domain

// SchemaField describes a single field of the destination entity type.
type SchemaField struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// TargetEntitySchema describes the destination entity type a migration
// imports into. Supplied by the backend and read-only to the controller;
// cacheable per entity type for the session.
type TargetEntitySchema struct {
	EntityType string        `json:"entity_type"`
	Fields     []SchemaField `json:"fields"`

	// UniqueFields are the fields designated for deduplication matching.
	UniqueFields []string `json:"unique_fields,omitempty"`
}

// RequiredFields returns the required field names in schema order.
func (s *TargetEntitySchema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// HasField reports whether the schema defines a field with the given name.
func (s *TargetEntitySchema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
