package workflow

import (
	"testing"

	"github.com/davidlin/dataport/internal/domain"
)

func runningJob() *domain.MigrationJob {
	return &domain.MigrationJob{
		ID:         "job-1",
		EntityType: "contact",
		Status:     domain.JobStatusRunning,
		TotalRows:  300,
	}
}

// Out-of-order delivery: a response issued earlier but arriving later must
// not overwrite fresher data.
func TestStaleProgressDiscarded(t *testing.T) {
	store := storeWithJob(runningJob())

	seq2 := store.NextSeq()
	seq3 := store.NextSeq()

	// #3 arrives first.
	if _, applied := store.ApplyProgress("job-1", seq3, &domain.ProgressDelta{
		Status: domain.JobStatusRunning, ProcessedRows: 120, TotalRows: 300,
	}); !applied {
		t.Fatal("fresh progress should apply")
	}

	// #2 straggles in afterwards.
	snap, applied := store.ApplyProgress("job-1", seq2, &domain.ProgressDelta{
		Status: domain.JobStatusRunning, ProcessedRows: 50, TotalRows: 300,
	})
	if applied {
		t.Error("stale progress must be discarded")
	}
	if snap.Counters.ProcessedRows != 120 {
		t.Errorf("processed_rows = %d, want 120 from the newer response", snap.Counters.ProcessedRows)
	}
}

func TestProgressForInactiveJobDiscarded(t *testing.T) {
	store := storeWithJob(runningJob())
	seq := store.NextSeq()

	store.SetActive("job-2")

	if _, applied := store.ApplyProgress("job-1", seq, &domain.ProgressDelta{ProcessedRows: 50}); applied {
		t.Error("progress for a job that is no longer active must be discarded")
	}
	if store.Get() != nil {
		t.Error("switching jobs must drop the previous snapshot")
	}
}

// A full refresh is authoritative: progress responses still in flight when
// it lands are older by construction and must be dropped.
func TestReplaceSupersedesInFlightProgress(t *testing.T) {
	store := storeWithJob(runningJob())

	seq := store.NextSeq() // request issued, response not yet back

	fresh := runningJob()
	fresh.Status = domain.JobStatusCompleted
	fresh.Counters = &domain.ExecutionCounters{ProcessedRows: 300, TotalRows: 300}
	store.Replace("job-1", fresh)

	if _, applied := store.ApplyProgress("job-1", seq, &domain.ProgressDelta{
		Status: domain.JobStatusRunning, ProcessedRows: 250,
	}); applied {
		t.Error("progress issued before a full refresh must not overwrite it")
	}
	if got := store.Get().Status; got != domain.JobStatusCompleted {
		t.Errorf("status = %q, want completed", got)
	}
}

func TestReplaceRejectsWrongJob(t *testing.T) {
	store := storeWithJob(runningJob())
	if store.Replace("job-9", runningJob()) {
		t.Error("replace for a non-active job must be rejected")
	}
}

// Snapshot updates are whole-object swaps: applying progress yields a new
// value and leaves the previous snapshot untouched.
func TestApplyProgressDoesNotMutateInPlace(t *testing.T) {
	store := storeWithJob(runningJob())
	before := store.Get()

	seq := store.NextSeq()
	after, applied := store.ApplyProgress("job-1", seq, &domain.ProgressDelta{
		Status: domain.JobStatusRunning, ProcessedRows: 50, TotalRows: 300,
	})
	if !applied {
		t.Fatal("progress should apply")
	}
	if before == after {
		t.Fatal("progress merge must produce a new snapshot, not mutate the old one")
	}
	if before.Counters != nil {
		t.Error("previous snapshot must remain unchanged")
	}
}
