package workflow

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/davidlin/dataport/internal/domain"
	"github.com/davidlin/dataport/internal/logger"
	"github.com/google/uuid"
)

// Controller is the composition root of the migration workflow. It owns the
// active job id and its snapshot store, derives the advisory wizard step,
// and hands each phase to its sub-component: upload, mapping reconciler,
// validation orchestrator, progress poller, rollback coordinator.
//
// The controller never advances job state locally; every transition is the
// result of a successful remote call whose returned snapshot replaces the
// cached one.
type Controller struct {
	api     JobAPI
	store   *SnapshotStore
	journal SessionJournal
	pollCfg PollerConfig
	logger  *logger.Logger

	mu         sync.Mutex
	jobID      string
	sessionID  string
	sourceURI  string
	startedAt  time.Time
	reconciler *MappingReconciler
	validation *ValidationOrchestrator
	poller     *ProgressPoller
	rollback   *RollbackCoordinator
}

// NewController creates a workflow controller. journal may be nil when no
// local run history is wanted (tests, one-shot invocations).
func NewController(api JobAPI, store *SnapshotStore, journal SessionJournal, pollCfg PollerConfig, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Controller{
		api:     api,
		store:   store,
		journal: journal,
		pollCfg: pollCfg,
		logger:  log,
	}
}

func (c *Controller) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return c.logger
}

// Attach makes jobID the controller's active subject, fetches its snapshot
// and wires up the per-job sub-components. Attaching to a new job tears
// down the previous one implicitly: the store discards anything still in
// flight for the old id.
func (c *Controller) Attach(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	c.store.SetActive(jobID)

	job, err := c.api.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	c.store.Replace(jobID, job)

	c.mu.Lock()
	c.jobID = jobID
	c.sessionID = uuid.New().String()
	c.startedAt = time.Now()
	c.reconciler = nil
	c.validation = NewValidationOrchestrator(c.api, c.store, jobID)
	c.poller = NewProgressPoller(c.api, c.store, jobID, c.pollCfg)
	c.rollback = NewRollbackCoordinator(c.api, c.store, jobID)
	c.mu.Unlock()

	c.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		"status":          string(job.Status),
		"step":            ResolveStep(job.Status).String(),
	}).Info("Attached to migration job")

	c.record(ctx, "")
	return job, nil
}

// JobID returns the active job id, or "" before Attach.
func (c *Controller) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}

// Snapshot returns the current cached snapshot.
func (c *Controller) Snapshot() *domain.MigrationJob {
	return c.store.Get()
}

// Step derives the advisory wizard step from the cached snapshot.
func (c *Controller) Step() Step {
	if snap := c.store.Get(); snap != nil {
		return ResolveStep(snap.Status)
	}
	return StepUpload
}

// Refresh refetches the full snapshot.
func (c *Controller) Refresh(ctx context.Context) (*domain.MigrationJob, error) {
	jobID := c.JobID()
	if jobID == "" {
		return nil, ErrNoActiveJob
	}
	job, err := c.api.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	c.store.Replace(jobID, job)
	return job, nil
}

// Upload sends the source file to the job. On success the snapshot carries
// the detected columns and row counts and status advances to uploaded.
func (c *Controller) Upload(ctx context.Context, uri, filename string, r io.Reader) (*domain.MigrationJob, error) {
	jobID := c.JobID()
	if jobID == "" {
		return nil, ErrNoActiveJob
	}
	job, err := c.api.UploadSource(ctx, jobID, filename, r)
	if err != nil {
		return nil, err
	}
	c.store.Replace(jobID, job)

	c.mu.Lock()
	c.sourceURI = uri
	c.mu.Unlock()

	c.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		"total_rows":      job.TotalRows,
		"columns":         len(job.SourceColumns),
	}).Info("Source file uploaded")

	c.record(ctx, "")
	return job, nil
}

// Reconciler returns the mapping reconciler for the active job, fetching
// the target schema on first use. The schema is cached per entity type by
// the client, so revisiting the mapping step is cheap.
func (c *Controller) Reconciler(ctx context.Context) (*MappingReconciler, error) {
	c.mu.Lock()
	if c.reconciler != nil {
		r := c.reconciler
		c.mu.Unlock()
		return r, nil
	}
	jobID := c.jobID
	c.mu.Unlock()

	if jobID == "" {
		return nil, ErrNoActiveJob
	}
	snap := c.store.Get()
	if snap == nil {
		return nil, ErrNoActiveJob
	}
	schema, err := c.api.GetSchema(ctx, snap.EntityType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reconciler == nil {
		c.reconciler = NewMappingReconciler(c.api, c.store, schema, jobID)
	}
	return c.reconciler, nil
}

// SaveMapping persists the reconciler's mapping and journals the advance.
func (c *Controller) SaveMapping(ctx context.Context) (*domain.MigrationJob, error) {
	r, err := c.Reconciler(ctx)
	if err != nil {
		return nil, err
	}
	job, err := r.Save(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, "")
	return job, nil
}

// Validation returns the validation orchestrator for the active job.
func (c *Controller) Validation() *ValidationOrchestrator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validation
}

// RunValidation triggers a dry-run validation and journals the result.
func (c *Controller) RunValidation(ctx context.Context) (*domain.ValidationResult, error) {
	v := c.Validation()
	if v == nil {
		return nil, ErrNoActiveJob
	}
	result, err := v.Run(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, "")
	return result, nil
}

// Execute begins the import and polls it to an outcome, journaling how the
// run ended. Precondition failures (no passed validation) surface before
// any remote call.
func (c *Controller) Execute(ctx context.Context) (PollOutcome, error) {
	c.mu.Lock()
	p := c.poller
	c.mu.Unlock()
	if p == nil {
		return "", ErrNoActiveJob
	}
	outcome, err := p.Start(ctx)
	if outcome != "" {
		c.record(ctx, sessionOutcome(outcome))
	}
	return outcome, err
}

// WatchExecution re-joins a job already running server-side and polls it to
// an outcome without issuing a new begin-execution request.
func (c *Controller) WatchExecution(ctx context.Context) (PollOutcome, error) {
	c.mu.Lock()
	p := c.poller
	c.mu.Unlock()
	if p == nil {
		return "", ErrNoActiveJob
	}
	outcome, err := p.Watch(ctx)
	if outcome != "" {
		c.record(ctx, sessionOutcome(outcome))
	}
	return outcome, err
}

// Rollback undoes a completed run and journals the reversal.
func (c *Controller) Rollback(ctx context.Context) (*domain.MigrationJob, error) {
	c.mu.Lock()
	r := c.rollback
	c.mu.Unlock()
	if r == nil {
		return nil, ErrNoActiveJob
	}
	job, err := r.Rollback(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, domain.OutcomeRolledBack)
	return job, nil
}

func sessionOutcome(o PollOutcome) domain.SessionOutcome {
	switch o {
	case PollCompleted:
		return domain.OutcomeCompleted
	case PollFailed:
		return domain.OutcomeFailed
	case PollCancelled:
		return domain.OutcomeCancelled
	case PollTimeout:
		return domain.OutcomeTimeout
	case PollConnectionLost:
		return domain.OutcomeConnectionLost
	}
	return ""
}

// record upserts the session journal row from the current snapshot. Journal
// failures are logged, never propagated: the remote workflow is the source
// of truth and must not be blocked by local bookkeeping.
func (c *Controller) record(ctx context.Context, outcome domain.SessionOutcome) {
	if c.journal == nil {
		return
	}
	snap := c.store.Get()
	if snap == nil {
		return
	}

	c.mu.Lock()
	session := &domain.MigrationSession{
		ID:         c.sessionID,
		JobID:      c.jobID,
		EntityType: snap.EntityType,
		SourceURI:  c.sourceURI,
		LastStatus: snap.Status,
		TotalRows:  snap.TotalRows,
		Outcome:    outcome,
		StartedAt:  c.startedAt,
	}
	c.mu.Unlock()

	if snap.Counters != nil {
		session.ProcessedRows = snap.Counters.ProcessedRows
		if snap.Counters.TotalRows > 0 {
			session.TotalRows = snap.Counters.TotalRows
		}
	}
	if snap.Status == domain.JobStatusFailed {
		session.ErrorMessage = snap.ErrorMessage
	}
	if outcome != "" {
		now := time.Now()
		session.FinishedAt = &now
	}

	if err := c.journal.Record(ctx, session); err != nil {
		c.log(ctx).WithError(err).Warn("Failed to record migration session")
	}
}
