package workflow

import (
	"context"
	"io"

	"github.com/davidlin/dataport/internal/client"
	"github.com/davidlin/dataport/internal/domain"
)

// JobAPI is the slice of the migration API the workflow engine depends on.
// *client.Client is the production implementation; tests substitute fakes.
//
// Every mutation returns the server's updated snapshot; the engine never
// transitions state locally before the remote call resolves.
type JobAPI interface {
	GetJob(ctx context.Context, jobID string) (*domain.MigrationJob, error)
	UploadSource(ctx context.Context, jobID, filename string, r io.Reader) (*domain.MigrationJob, error)
	SuggestMapping(ctx context.Context, jobID string) (domain.FieldMapping, error)
	SaveMapping(ctx context.Context, jobID string, req *client.SaveMappingRequest) (*domain.MigrationJob, error)
	Validate(ctx context.Context, jobID string) (*domain.MigrationJob, error)
	BeginExecution(ctx context.Context, jobID string) error
	GetProgress(ctx context.Context, jobID string) (*domain.ProgressDelta, error)
	Rollback(ctx context.Context, jobID string) (*domain.MigrationJob, error)
	GetSchema(ctx context.Context, entityType string) (*domain.TargetEntitySchema, error)
}

// SessionJournal records the local trail of a driven migration run.
// *repository.SessionRepository is the production implementation.
type SessionJournal interface {
	Record(ctx context.Context, session *domain.MigrationSession) error
}
