package workflow

import (
	"context"

	"github.com/davidlin/dataport/internal/domain"
	"github.com/davidlin/dataport/internal/logger"
)

// DefaultDisplayLimit caps how many findings of each kind are surfaced for
// display. The authoritative counts always reflect the untruncated totals.
const DefaultDisplayLimit = 50

// ValidationOrchestrator triggers dry-run validation and exposes its
// findings. It holds no pass/fail logic of its own: the result's is_valid
// flag is authoritative and is the sole gate the poller consults.
type ValidationOrchestrator struct {
	api          JobAPI
	store        *SnapshotStore
	jobID        string
	displayLimit int
}

// NewValidationOrchestrator creates an orchestrator for the given job.
func NewValidationOrchestrator(api JobAPI, store *SnapshotStore, jobID string) *ValidationOrchestrator {
	return &ValidationOrchestrator{
		api:          api,
		store:        store,
		jobID:        jobID,
		displayLimit: DefaultDisplayLimit,
	}
}

// Run invokes validation and replaces the cached snapshot with the result.
// Re-running overwrites the previous findings; there is no history of
// validation attempts.
func (v *ValidationOrchestrator) Run(ctx context.Context) (*domain.ValidationResult, error) {
	job, err := v.api.Validate(ctx, v.jobID)
	if err != nil {
		return nil, err
	}
	v.store.Replace(v.jobID, job)

	result := job.Validation
	if result != nil && !result.Consistent() {
		logger.With(logger.Fields{
			"error_count":   result.ErrorCount,
			"warning_count": result.WarningCount,
		}).Warn(ctx, "Validation counts disagree with finding lists")
	}
	return result, nil
}

// DisplayErrors returns the error findings truncated to the display limit.
func (v *ValidationOrchestrator) DisplayErrors(r *domain.ValidationResult) []domain.ValidationIssue {
	return truncateIssues(r.Errors, v.displayLimit)
}

// DisplayWarnings returns the warning findings truncated to the display limit.
func (v *ValidationOrchestrator) DisplayWarnings(r *domain.ValidationResult) []domain.ValidationIssue {
	return truncateIssues(r.Warnings, v.displayLimit)
}

func truncateIssues(issues []domain.ValidationIssue, limit int) []domain.ValidationIssue {
	if limit <= 0 || len(issues) <= limit {
		return issues
	}
	return issues[:limit]
}
