package domain

import "time"

// JobStatus represents the server-reported status of a migration job.
// The set of values is closed; anything else is treated as unknown.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusMapped     JobStatus = "mapped"
	JobStatusValidating JobStatus = "validating"
	JobStatusValidated  JobStatus = "validated"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusRolledBack JobStatus = "rolled_back"
)

// KnownStatuses lists every value of the status enumeration.
var KnownStatuses = []JobStatus{
	JobStatusPending, JobStatusUploaded, JobStatusMapped,
	JobStatusValidating, JobStatusValidated, JobStatusRunning,
	JobStatusCompleted, JobStatusFailed, JobStatusCancelled,
	JobStatusRolledBack,
}

// Known reports whether s is a member of the status enumeration.
func (s JobStatus) Known() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Terminal reports whether the job will not progress further on its own.
// completed is soft-terminal: rollback can still move it to rolled_back.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusRolledBack:
		return true
	}
	return false
}

// ExecutionTerminal reports whether a progress poll observing this status
// should stop. rolled_back is excluded: it is never reached while polling.
func (s JobStatus) ExecutionTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// MigrationJob is the client's snapshot of a migration job as last fetched
// from the server. Snapshots are value objects: consumers must never mutate
// one in place; every refresh replaces the snapshot wholesale.
//
// Optional parts (FieldMapping, Validation, Counters) are nil until the
// corresponding phase has run, which is distinct from being empty.
type MigrationJob struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	Status     JobStatus `json:"status"`

	// Source metadata, set once at upload and immutable afterwards.
	TotalRows     int                 `json:"total_rows"`
	SourceColumns []string            `json:"source_columns,omitempty"`
	SampleRows    []map[string]string `json:"sample_rows,omitempty"`

	FieldMapping  FieldMapping  `json:"field_mapping,omitempty"`
	DedupStrategy DedupStrategy `json:"dedup_strategy,omitempty"`
	DedupFields   []string      `json:"dedup_fields,omitempty"`

	Validation *ValidationResult  `json:"validation,omitempty"`
	Counters   *ExecutionCounters `json:"counters,omitempty"`

	// ErrorMessage is populated only when Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the snapshot so a caller can derive a new
// snapshot without aliasing the stored one.
func (j *MigrationJob) Clone() *MigrationJob {
	if j == nil {
		return nil
	}
	out := *j
	if j.SourceColumns != nil {
		out.SourceColumns = append([]string(nil), j.SourceColumns...)
	}
	if j.SampleRows != nil {
		out.SampleRows = make([]map[string]string, len(j.SampleRows))
		for i, row := range j.SampleRows {
			cp := make(map[string]string, len(row))
			for k, v := range row {
				cp[k] = v
			}
			out.SampleRows[i] = cp
		}
	}
	if j.FieldMapping != nil {
		out.FieldMapping = j.FieldMapping.Clone()
	}
	if j.DedupFields != nil {
		out.DedupFields = append([]string(nil), j.DedupFields...)
	}
	if j.Validation != nil {
		out.Validation = j.Validation.Clone()
	}
	if j.Counters != nil {
		c := *j.Counters
		out.Counters = &c
	}
	return &out
}

// ExecutionCounters holds the record counts reported once execution has
// started. created+updated+skipped+failed never exceeds processed.
type ExecutionCounters struct {
	ProcessedRows  int `json:"processed_rows"`
	TotalRows      int `json:"total_rows"`
	CreatedRecords int `json:"created_records"`
	UpdatedRecords int `json:"updated_records"`
	SkippedRecords int `json:"skipped_records"`
	FailedRecords  int `json:"failed_records"`
}

// ProgressPercent recomputes progress as processed/total*100 clamped to [0,100].
func (c *ExecutionCounters) ProgressPercent() float64 {
	if c == nil || c.TotalRows <= 0 {
		return 0
	}
	pct := float64(c.ProcessedRows) / float64(c.TotalRows) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
