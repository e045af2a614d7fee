package domain

// ValidationIssue is a single row-level finding from a dry-run validation.
type ValidationIssue struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of one dry-run validation. A re-run
// replaces the previous result wholesale; findings are never accumulated
// across runs.
//
// ErrorCount and WarningCount are authoritative and must equal the list
// lengths as reported by the server; a client may truncate the lists for
// display but never the counts.
type ValidationResult struct {
	IsValid      bool              `json:"is_valid"`
	Errors       []ValidationIssue `json:"errors"`
	Warnings     []ValidationIssue `json:"warnings"`
	ErrorCount   int               `json:"error_count"`
	WarningCount int               `json:"warning_count"`
}

// Clone returns a deep copy of the result.
func (r *ValidationResult) Clone() *ValidationResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Errors != nil {
		out.Errors = append([]ValidationIssue(nil), r.Errors...)
	}
	if r.Warnings != nil {
		out.Warnings = append([]ValidationIssue(nil), r.Warnings...)
	}
	return &out
}

// Consistent reports whether the counts agree with the list lengths.
func (r *ValidationResult) Consistent() bool {
	return r.ErrorCount == len(r.Errors) && r.WarningCount == len(r.Warnings)
}
