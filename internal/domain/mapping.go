package domain

// FieldMapping maps a source column name to a target field name. Keys are
// unique by construction; values must never be empty (removing a column's
// target deletes the key instead).
type FieldMapping map[string]string

// Clone returns a copy of the mapping.
func (m FieldMapping) Clone() FieldMapping {
	if m == nil {
		return nil
	}
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TargetOf returns the source column currently mapped to the given target
// field, if any.
func (m FieldMapping) TargetOf(field string) (string, bool) {
	for col, target := range m {
		if target == field {
			return col, true
		}
	}
	return "", false
}

// Targets returns the set of target fields present in the mapping.
func (m FieldMapping) Targets() map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for _, target := range m {
		out[target] = struct{}{}
	}
	return out
}

// DedupStrategy is the policy applied when a source row matches an existing
// target record on the schema's dedup fields.
type DedupStrategy string

const (
	DedupSkip      DedupStrategy = "skip"
	DedupOverwrite DedupStrategy = "overwrite"
	DedupMerge     DedupStrategy = "merge"
)

// Valid reports whether the strategy is one of the supported values.
func (d DedupStrategy) Valid() bool {
	switch d {
	case DedupSkip, DedupOverwrite, DedupMerge:
		return true
	}
	return false
}
