package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/davidlin/dataport/internal/domain"
)

func mappedJob() *domain.MigrationJob {
	return &domain.MigrationJob{
		ID:         "job-1",
		EntityType: "contact",
		Status:     domain.JobStatusMapped,
		TotalRows:  100,
	}
}

func issues(n int) []domain.ValidationIssue {
	out := make([]domain.ValidationIssue, n)
	for i := range out {
		out[i] = domain.ValidationIssue{
			Row:     i + 1,
			Field:   "email_address",
			Message: fmt.Sprintf("row %d: invalid email", i+1),
		}
	}
	return out
}

// Re-running validation overwrites the previous findings wholesale; nothing
// accumulates across runs.
func TestRerunOverwritesFindings(t *testing.T) {
	results := []*domain.ValidationResult{
		{IsValid: false, Errors: issues(3), ErrorCount: 3},
		{IsValid: true, Warnings: issues(1), WarningCount: 1},
	}

	run := 0
	api := newFakeAPI()
	api.validateFn = func(context.Context, string) (*domain.MigrationJob, error) {
		job := mappedJob()
		job.Status = domain.JobStatusValidated
		job.Validation = results[run]
		run++
		return job, nil
	}

	store := storeWithJob(mappedJob())
	v := NewValidationOrchestrator(api, store, "job-1")

	first, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.IsValid || first.ErrorCount != 3 {
		t.Fatalf("first result = valid:%v errors:%d, want invalid with 3", first.IsValid, first.ErrorCount)
	}

	second, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.IsValid {
		t.Error("second run should report valid")
	}
	if len(second.Errors) != 0 || second.ErrorCount != 0 {
		t.Errorf("errors = %d/%d, want none: findings must not accumulate", len(second.Errors), second.ErrorCount)
	}

	snap := store.Get()
	if snap.Validation != second {
		if snap.Validation.ErrorCount != 0 || snap.Validation.WarningCount != 1 {
			t.Error("snapshot must hold only the latest run's findings")
		}
	}
}

// Display lists are truncated; the authoritative counts are not.
func TestDisplayTruncationKeepsCounts(t *testing.T) {
	api := newFakeAPI()
	api.validateFn = func(context.Context, string) (*domain.MigrationJob, error) {
		job := mappedJob()
		job.Status = domain.JobStatusValidated
		job.Validation = &domain.ValidationResult{
			IsValid:    false,
			Errors:     issues(60),
			ErrorCount: 60,
		}
		return job, nil
	}

	store := storeWithJob(mappedJob())
	v := NewValidationOrchestrator(api, store, "job-1")

	result, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	shown := v.DisplayErrors(result)
	if len(shown) != DefaultDisplayLimit {
		t.Errorf("displayed errors = %d, want %d", len(shown), DefaultDisplayLimit)
	}
	if result.ErrorCount != 60 {
		t.Errorf("error_count = %d, want 60: truncation is display-only", result.ErrorCount)
	}
	if shown[0].Row != 1 || shown[len(shown)-1].Row != DefaultDisplayLimit {
		t.Error("truncation must keep the leading findings in order")
	}
}

func TestDisplayBelowLimitUntouched(t *testing.T) {
	v := NewValidationOrchestrator(newFakeAPI(), NewSnapshotStore(), "job-1")
	result := &domain.ValidationResult{Warnings: issues(5), WarningCount: 5}

	if got := v.DisplayWarnings(result); len(got) != 5 {
		t.Errorf("displayed warnings = %d, want all 5", len(got))
	}
}
