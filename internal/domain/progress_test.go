package domain

import "testing"

func TestApplyProgressMerges(t *testing.T) {
	job := &MigrationJob{ID: "job-1", Status: JobStatusRunning, TotalRows: 300}

	out := ApplyProgress(job, &ProgressDelta{
		Status:         JobStatusRunning,
		ProcessedRows:  120,
		TotalRows:      300,
		CreatedRecords: 100,
		SkippedRecords: 20,
	})

	if out.Counters.ProcessedRows != 120 {
		t.Errorf("processed_rows = %d, want 120", out.Counters.ProcessedRows)
	}
	if out.Counters.CreatedRecords != 100 || out.Counters.SkippedRecords != 20 {
		t.Errorf("counters = %+v", out.Counters)
	}
	if job.Counters != nil {
		t.Error("input snapshot must not be mutated")
	}
}

// processed_rows is monotonic within a job: a delta reporting less than the
// snapshot already holds keeps the higher value.
func TestApplyProgressMonotonic(t *testing.T) {
	job := &MigrationJob{ID: "job-1", Status: JobStatusRunning, TotalRows: 300}

	for _, processed := range []int{0, 50, 120, 120, 300} {
		job = ApplyProgress(job, &ProgressDelta{
			Status: JobStatusRunning, ProcessedRows: processed, TotalRows: 300,
		})
	}
	if job.Counters.ProcessedRows != 300 {
		t.Fatalf("processed_rows = %d, want 300", job.Counters.ProcessedRows)
	}

	// Regression delta.
	out := ApplyProgress(job, &ProgressDelta{
		Status: JobStatusRunning, ProcessedRows: 50, TotalRows: 300,
	})
	if out.Counters.ProcessedRows != 300 {
		t.Errorf("processed_rows = %d, want 300 kept over the regressing delta", out.Counters.ProcessedRows)
	}
}

// When the delta omits a total, the snapshot's own row count fills in so a
// percentage can still be derived.
func TestApplyProgressFallsBackToJobTotal(t *testing.T) {
	job := &MigrationJob{ID: "job-1", Status: JobStatusRunning, TotalRows: 200}
	out := ApplyProgress(job, &ProgressDelta{Status: JobStatusRunning, ProcessedRows: 50})
	if out.Counters.TotalRows != 200 {
		t.Errorf("total_rows = %d, want 200 from the snapshot", out.Counters.TotalRows)
	}
}

func TestProgressPercentClamped(t *testing.T) {
	testCases := []struct {
		name      string
		processed int
		total     int
		want      float64
	}{
		{"zero total", 10, 0, 0},
		{"half", 150, 300, 50},
		{"done", 300, 300, 100},
		{"over-report", 400, 300, 100},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &ExecutionCounters{ProcessedRows: tc.processed, TotalRows: tc.total}
			if got := c.ProgressPercent(); got != tc.want {
				t.Errorf("ProgressPercent() = %v, want %v", got, tc.want)
			}
		})
	}
	var nilCounters *ExecutionCounters
	if got := nilCounters.ProgressPercent(); got != 0 {
		t.Errorf("nil counters percent = %v, want 0", got)
	}
}
