package workflow

import "github.com/davidlin/dataport/internal/domain"

// Step is the wizard step a job status maps onto. The resolved step is
// advisory for presentation only: it never gates which operations are
// callable, because a user may legitimately revisit an earlier step (for
// example to remap after validation surfaced a mapping problem).
type Step int

const (
	StepUpload Step = iota
	StepMapping
	StepCleaning
	StepValidate
	StepExecute
)

var stepNames = map[Step]string{
	StepUpload:   "upload",
	StepMapping:  "mapping",
	StepCleaning: "cleaning",
	StepValidate: "validate",
	StepExecute:  "execute",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// ResolveStep maps a job status to the active step. Total over the status
// enumeration; anything unrecognized fails safe to the upload step, never
// to an invalid index. Depends on nothing but the status.
func ResolveStep(status domain.JobStatus) Step {
	switch status {
	case domain.JobStatusPending:
		return StepUpload
	case domain.JobStatusUploaded:
		return StepMapping
	case domain.JobStatusMapped:
		return StepCleaning
	case domain.JobStatusValidating, domain.JobStatusValidated:
		return StepValidate
	case domain.JobStatusRunning, domain.JobStatusCompleted, domain.JobStatusFailed,
		domain.JobStatusCancelled, domain.JobStatusRolledBack:
		return StepExecute
	default:
		return StepUpload
	}
}
