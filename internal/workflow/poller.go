package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/davidlin/dataport/internal/domain"
	"github.com/davidlin/dataport/internal/logger"
)

// PollOutcome is how a polling run ended. Timeout and connection loss are
// deliberately distinct from job failure: in both cases the job may still be
// progressing server-side; the client merely stopped waiting.
type PollOutcome string

const (
	PollCompleted      PollOutcome = "completed"
	PollFailed         PollOutcome = "failed"
	PollCancelled      PollOutcome = "cancelled"
	PollTimeout        PollOutcome = "timeout"
	PollConnectionLost PollOutcome = "connection_lost"
)

// PollerConfig holds the knobs of the progress polling loop.
type PollerConfig struct {
	// Interval between progress fetches.
	Interval time.Duration
	// MaxWait bounds the whole polling run; 0 means unbounded (the run is
	// still cancelable through the context).
	MaxWait time.Duration
	// MaxTickFailures is the number of consecutive failed ticks tolerated
	// before giving up with PollConnectionLost.
	MaxTickFailures int
}

// DefaultPollerConfig returns the reference polling behavior: 2s ticks,
// unbounded wait, give up after 5 consecutive tick failures.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:        2 * time.Second,
		MaxTickFailures: 5,
	}
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.MaxTickFailures <= 0 {
		c.MaxTickFailures = 5
	}
	return c
}

// ProgressPoller starts the import and observes it to a terminal status by
// polling the lightweight progress endpoint on a fixed interval, merging
// each delta into the shared snapshot store.
type ProgressPoller struct {
	api      JobAPI
	store    *SnapshotStore
	jobID    string
	cfg      PollerConfig
	inFlight atomic.Bool
}

// NewProgressPoller creates a poller for the given job.
func NewProgressPoller(api JobAPI, store *SnapshotStore, jobID string, cfg PollerConfig) *ProgressPoller {
	return &ProgressPoller{
		api:   api,
		store: store,
		jobID: jobID,
		cfg:   cfg.withDefaults(),
	}
}

// Start begins execution and polls it to an outcome. Preconditions checked
// locally before any remote call: a validation run must exist on the
// snapshot and must have passed. A failed begin-execution request is
// surfaced and no polling starts. Only one run may be in flight per poller.
//
// Cancelling ctx stops the loop at the next select without issuing further
// requests and yields PollCancelled together with the context error.
func (p *ProgressPoller) Start(ctx context.Context) (PollOutcome, error) {
	snap := p.store.Get()
	if snap == nil || snap.Validation == nil {
		return "", ErrValidationRequired
	}
	if !snap.Validation.IsValid {
		return "", ErrValidationFailed
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		return "", ErrExecutionInFlight
	}
	defer p.inFlight.Store(false)

	if err := p.api.BeginExecution(ctx, p.jobID); err != nil {
		return "", err
	}
	logger.CtxInfo(ctx, "Execution started, polling every %s", p.cfg.Interval)
	return p.poll(ctx)
}

// Watch polls an already-running job to an outcome without issuing a new
// begin-execution request. Used when re-attaching to a job that was left
// running by an earlier session.
func (p *ProgressPoller) Watch(ctx context.Context) (PollOutcome, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return "", ErrExecutionInFlight
	}
	defer p.inFlight.Store(false)
	return p.poll(ctx)
}

func (p *ProgressPoller) poll(ctx context.Context) (PollOutcome, error) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.cfg.MaxWait > 0 {
		timer := time.NewTimer(p.cfg.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return PollCancelled, ctx.Err()

		case <-deadline:
			logger.CtxWarn(ctx, "Gave up waiting for job %s after %s; the job may still be running", p.jobID, p.cfg.MaxWait)
			return PollTimeout, nil

		case <-ticker.C:
			seq := p.store.NextSeq()
			delta, err := p.api.GetProgress(ctx, p.jobID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return PollCancelled, ctx.Err()
				}
				failures++
				logger.CtxWarn(ctx, "Progress poll tick failed (%d/%d): %v", failures, p.cfg.MaxTickFailures, err)
				if failures >= p.cfg.MaxTickFailures {
					return PollConnectionLost, fmt.Errorf("lost connection to job %s after %d consecutive poll failures: %w", p.jobID, failures, err)
				}
				continue
			}
			failures = 0

			p.store.ApplyProgress(p.jobID, seq, delta)

			if delta.Status.ExecutionTerminal() {
				// Progress responses are a lighter shape than the job record;
				// do one final full refresh before stopping.
				if job, err := p.api.GetJob(ctx, p.jobID); err != nil {
					logger.CtxWarn(ctx, "Final snapshot refresh failed: %v", err)
				} else {
					p.store.Replace(p.jobID, job)
				}
				return outcomeFor(delta.Status), nil
			}
		}
	}
}

func outcomeFor(status domain.JobStatus) PollOutcome {
	switch status {
	case domain.JobStatusCompleted:
		return PollCompleted
	case domain.JobStatusFailed:
		return PollFailed
	case domain.JobStatusCancelled:
		return PollCancelled
	}
	return PollFailed
}
