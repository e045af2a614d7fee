package workflow

import (
	"context"
	"sync/atomic"

	"github.com/davidlin/dataport/internal/domain"
	"github.com/davidlin/dataport/internal/logger"
)

// RollbackCoordinator invokes the compensating rollback on a completed job.
// The action is destructive of the migrated effect, so a second invocation
// while one is in flight is suppressed outright rather than deduplicated.
type RollbackCoordinator struct {
	api      JobAPI
	store    *SnapshotStore
	jobID    string
	inFlight atomic.Bool
}

// NewRollbackCoordinator creates a coordinator for the given job.
func NewRollbackCoordinator(api JobAPI, store *SnapshotStore, jobID string) *RollbackCoordinator {
	return &RollbackCoordinator{api: api, store: store, jobID: jobID}
}

// Rollback checks the completed precondition against the cached snapshot,
// then issues exactly one rollback request. On success the returned
// snapshot (expected status rolled_back) replaces the cached one. If the
// precondition changed between render and invocation, the server's
// rejection is surfaced and the snapshot is left unchanged.
func (r *RollbackCoordinator) Rollback(ctx context.Context) (*domain.MigrationJob, error) {
	snap := r.store.Get()
	if snap == nil || snap.Status != domain.JobStatusCompleted {
		return nil, ErrNotRollbackable
	}

	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRollbackInFlight
	}
	defer r.inFlight.Store(false)

	job, err := r.api.Rollback(ctx, r.jobID)
	if err != nil {
		return nil, err
	}
	r.store.Replace(r.jobID, job)
	logger.CtxInfo(ctx, "Job %s rolled back", r.jobID)
	return job, nil
}
