package workflow

import (
	"sync"

	"github.com/davidlin/dataport/internal/domain"
)

// SnapshotStore is the session-scoped cache of the active job's snapshot.
// It is explicitly owned and passed by handle into each step component so
// tests can construct isolated instances.
//
// Updates are whole-object swaps: a reader either sees the previous snapshot
// or the new one, never a partial write. Progress merges carry a sequence
// number taken before the request is issued; a response whose sequence is
// older than the last applied one is discarded, so a slow poll response can
// never overwrite fresher data. Responses for a job that is no longer the
// active subject are discarded as well.
type SnapshotStore struct {
	mu          sync.RWMutex
	activeJobID string
	snapshot    *domain.MigrationJob
	nextSeq     uint64
	appliedSeq  uint64
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// SetActive makes jobID the active subject, dropping any snapshot and
// pending sequence state of a previous job.
func (s *SnapshotStore) SetActive(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeJobID == jobID {
		return
	}
	s.activeJobID = jobID
	s.snapshot = nil
	s.appliedSeq = s.nextSeq
}

// ActiveJobID returns the id of the active subject, or "" if none.
func (s *SnapshotStore) ActiveJobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeJobID
}

// Get returns the current snapshot, or nil if none has been stored yet.
// The returned value is shared and must be treated as read-only.
func (s *SnapshotStore) Get() *domain.MigrationJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// NextSeq reserves a sequence number for a request about to be issued.
func (s *SnapshotStore) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// Replace swaps in a full snapshot for the active job. Full fetches are
// authoritative: any progress response still in flight at this point is
// older by construction, so the applied sequence is advanced past every
// reserved number. Returns false if jobID is not the active subject.
func (s *SnapshotStore) Replace(jobID string, job *domain.MigrationJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID != s.activeJobID {
		return false
	}
	s.snapshot = job
	s.appliedSeq = s.nextSeq
	return true
}

// ApplyProgress merges a progress delta fetched under seq into the snapshot.
// The merge is dropped when the job is no longer active, when no snapshot
// exists to merge into, or when a newer response has already been applied.
// Returns the resulting snapshot and whether the delta was applied.
func (s *SnapshotStore) ApplyProgress(jobID string, seq uint64, d *domain.ProgressDelta) (*domain.MigrationJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID != s.activeJobID || s.snapshot == nil || seq <= s.appliedSeq {
		return s.snapshot, false
	}
	s.snapshot = domain.ApplyProgress(s.snapshot, d)
	s.appliedSeq = seq
	return s.snapshot, true
}
