package workflow

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/davidlin/dataport/internal/client"
	"github.com/davidlin/dataport/internal/domain"
)

// fakeAPI is a scriptable JobAPI for workflow tests. Unset operations fail
// loudly so a test never silently exercises an endpoint it did not script.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	getJobFn      func(ctx context.Context, jobID string) (*domain.MigrationJob, error)
	uploadFn      func(ctx context.Context, jobID, filename string, r io.Reader) (*domain.MigrationJob, error)
	suggestFn     func(ctx context.Context, jobID string) (domain.FieldMapping, error)
	saveMappingFn func(ctx context.Context, jobID string, req *client.SaveMappingRequest) (*domain.MigrationJob, error)
	validateFn    func(ctx context.Context, jobID string) (*domain.MigrationJob, error)
	beginFn       func(ctx context.Context, jobID string) error
	progressFn    func(ctx context.Context, jobID string) (*domain.ProgressDelta, error)
	rollbackFn    func(ctx context.Context, jobID string) (*domain.MigrationJob, error)
	schemaFn      func(ctx context.Context, entityType string) (*domain.TargetEntitySchema, error)
}

var errNotScripted = errors.New("operation not scripted in this test")

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) GetJob(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	f.count("get_job")
	if f.getJobFn == nil {
		return nil, errNotScripted
	}
	return f.getJobFn(ctx, jobID)
}

func (f *fakeAPI) UploadSource(ctx context.Context, jobID, filename string, r io.Reader) (*domain.MigrationJob, error) {
	f.count("upload")
	if f.uploadFn == nil {
		return nil, errNotScripted
	}
	return f.uploadFn(ctx, jobID, filename, r)
}

func (f *fakeAPI) SuggestMapping(ctx context.Context, jobID string) (domain.FieldMapping, error) {
	f.count("suggest")
	if f.suggestFn == nil {
		return nil, errNotScripted
	}
	return f.suggestFn(ctx, jobID)
}

func (f *fakeAPI) SaveMapping(ctx context.Context, jobID string, req *client.SaveMappingRequest) (*domain.MigrationJob, error) {
	f.count("save_mapping")
	if f.saveMappingFn == nil {
		return nil, errNotScripted
	}
	return f.saveMappingFn(ctx, jobID, req)
}

func (f *fakeAPI) Validate(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	f.count("validate")
	if f.validateFn == nil {
		return nil, errNotScripted
	}
	return f.validateFn(ctx, jobID)
}

func (f *fakeAPI) BeginExecution(ctx context.Context, jobID string) error {
	f.count("begin")
	if f.beginFn == nil {
		return errNotScripted
	}
	return f.beginFn(ctx, jobID)
}

func (f *fakeAPI) GetProgress(ctx context.Context, jobID string) (*domain.ProgressDelta, error) {
	f.count("progress")
	if f.progressFn == nil {
		return nil, errNotScripted
	}
	return f.progressFn(ctx, jobID)
}

func (f *fakeAPI) Rollback(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	f.count("rollback")
	if f.rollbackFn == nil {
		return nil, errNotScripted
	}
	return f.rollbackFn(ctx, jobID)
}

func (f *fakeAPI) GetSchema(ctx context.Context, entityType string) (*domain.TargetEntitySchema, error) {
	f.count("schema")
	if f.schemaFn == nil {
		return nil, errNotScripted
	}
	return f.schemaFn(ctx, entityType)
}

// contactSchema is the schema used across the mapping tests.
func contactSchema() *domain.TargetEntitySchema {
	return &domain.TargetEntitySchema{
		EntityType: "contact",
		Fields: []domain.SchemaField{
			{Name: "full_name", Required: true},
			{Name: "email_address", Required: true},
			{Name: "phone", Required: false},
		},
		UniqueFields: []string{"email_address"},
	}
}

// storeWithJob builds a store holding a snapshot for jobID.
func storeWithJob(job *domain.MigrationJob) *SnapshotStore {
	store := NewSnapshotStore()
	store.SetActive(job.ID)
	store.Replace(job.ID, job)
	return store
}
