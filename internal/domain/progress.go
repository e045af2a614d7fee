package domain

// ProgressDelta is the lightweight shape returned by the progress endpoint
// during execution. It deliberately carries less than the full job record;
// merging it into a snapshot is explicit (ApplyProgress), never assumed to
// be structurally compatible.
type ProgressDelta struct {
	Status          JobStatus `json:"status"`
	ProcessedRows   int       `json:"processed_rows"`
	TotalRows       int       `json:"total_rows"`
	ProgressPercent float64   `json:"progress_percent"`
	CreatedRecords  int       `json:"created_records"`
	UpdatedRecords  int       `json:"updated_records"`
	SkippedRecords  int       `json:"skipped_records"`
	FailedRecords   int       `json:"failed_records"`
}

// ApplyProgress returns a new snapshot with the delta merged in. The input
// snapshot is not modified. processed_rows and total_rows are monotonic for
// a given job: a delta reporting less than the snapshot already holds is
// treated as stale for that counter and the higher value is kept.
func ApplyProgress(job *MigrationJob, d *ProgressDelta) *MigrationJob {
	if job == nil || d == nil {
		return job
	}
	out := job.Clone()
	if d.Status != "" {
		out.Status = d.Status
	}

	c := ExecutionCounters{}
	if out.Counters != nil {
		c = *out.Counters
	}
	if d.ProcessedRows > c.ProcessedRows {
		c.ProcessedRows = d.ProcessedRows
	}
	if d.TotalRows > c.TotalRows {
		c.TotalRows = d.TotalRows
	} else if c.TotalRows == 0 {
		c.TotalRows = out.TotalRows
	}
	c.CreatedRecords = d.CreatedRecords
	c.UpdatedRecords = d.UpdatedRecords
	c.SkippedRecords = d.SkippedRecords
	c.FailedRecords = d.FailedRecords
	out.Counters = &c
	return out
}
