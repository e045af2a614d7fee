package repository

import (
	"context"

	"github.com/davidlin/dataport/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository persists the local journal of driven migration runs.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SessionRepository: repository instance bound to db.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Record creates or updates the journal row for a session, keyed by job id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - session: session row to persist.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *SessionRepository) Record(ctx context.Context, session *domain.MigrationSession) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(session).Error
}

// GetByJobID retrieves the journal row for a job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: migration job id.
// Returns:
//   - *domain.MigrationSession: journal row if found.
//   - error: non-nil if lookup fails.
func (r *SessionRepository) GetByJobID(ctx context.Context, jobID string) (*domain.MigrationSession, error) {
	var session domain.MigrationSession
	if err := r.db.WithContext(ctx).First(&session, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListRecent lists the most recently updated sessions.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of rows to return.
// Returns:
//   - []domain.MigrationSession: journal rows, newest first.
//   - error: non-nil if the query fails.
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]domain.MigrationSession, error) {
	var sessions []domain.MigrationSession
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListUnfinished lists sessions without a recorded outcome, oldest first.
// These are candidates for re-attaching with a watch.
func (r *SessionRepository) ListUnfinished(ctx context.Context) ([]domain.MigrationSession, error) {
	var sessions []domain.MigrationSession
	if err := r.db.WithContext(ctx).
		Where("outcome = '' OR outcome IS NULL").
		Order("started_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
