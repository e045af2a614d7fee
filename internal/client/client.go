package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/davidlin/dataport/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Client talks to the migration job API. It is the controller's only
// external dependency; every job state transition happens through one of
// these calls and is reflected back as a fresh snapshot.
type Client struct {
	http *resty.Client

	schemaMu sync.Mutex
	schemas  map[string]*domain.TargetEntitySchema
}

// Config holds configuration for the migration API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New creates a new migration API client.
func New(cfg *Config) *Client {
	http := resty.New()
	http.SetBaseURL(cfg.BaseURL)
	http.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		http.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	http.SetTimeout(timeout)

	return &Client{
		http:    http,
		schemas: make(map[string]*domain.TargetEntitySchema),
	}
}

// errorBody is the error envelope the API uses for non-2xx responses.
type errorBody struct {
	Error string `json:"error"`
}

func apiErr(resp *resty.Response) error {
	msg := ""
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// GetJob fetches the full snapshot of a job by id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	var job domain.MigrationJob
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&job).
		SetError(&errorBody{}).
		Get(fmt.Sprintf("/api/v1/migrations/%s", jobID))
	if err != nil {
		return nil, fmt.Errorf("fetch job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &job, nil
}

// UploadSource uploads the source file for a job. On success the returned
// snapshot carries the detected source columns, total row count and sample
// rows, and status has advanced to uploaded.
func (c *Client) UploadSource(ctx context.Context, jobID, filename string, r io.Reader) (*domain.MigrationJob, error) {
	var job domain.MigrationJob
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetResult(&job).
		SetError(&errorBody{}).
		Post(fmt.Sprintf("/api/v1/migrations/%s/upload", jobID))
	if err != nil {
		return nil, fmt.Errorf("upload source for job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &job, nil
}

// suggestionResponse wraps the non-authoritative mapping proposal.
type suggestionResponse struct {
	Suggestions domain.FieldMapping `json:"suggestions"`
}

// SuggestMapping fetches the system-suggested column mapping for a job.
// The suggestion is transient: it never becomes job state until the caller
// applies and saves it.
func (c *Client) SuggestMapping(ctx context.Context, jobID string) (domain.FieldMapping, error) {
	var out suggestionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get(fmt.Sprintf("/api/v1/migrations/%s/mapping/suggest", jobID))
	if err != nil {
		return nil, fmt.Errorf("fetch mapping suggestion for job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return out.Suggestions, nil
}

// SaveMappingRequest is the atomic save payload: the mapping always travels
// with the dedup policy, never separately.
type SaveMappingRequest struct {
	FieldMapping  domain.FieldMapping  `json:"field_mapping"`
	DedupStrategy domain.DedupStrategy `json:"dedup_strategy"`
	DedupFields   []string             `json:"dedup_fields"`
}

// SaveMapping persists the field mapping and dedup policy for a job.
func (c *Client) SaveMapping(ctx context.Context, jobID string, req *SaveMappingRequest) (*domain.MigrationJob, error) {
	var job domain.MigrationJob
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&job).
		SetError(&errorBody{}).
		Put(fmt.Sprintf("/api/v1/migrations/%s/mapping", jobID))
	if err != nil {
		return nil, fmt.Errorf("save mapping for job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &job, nil
}

// Validate triggers a dry-run validation of the job.
func (c *Client) Validate(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	var job domain.MigrationJob
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&job).
		SetError(&errorBody{}).
		Post(fmt.Sprintf("/api/v1/migrations/%s/validate", jobID))
	if err != nil {
		return nil, fmt.Errorf("validate job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &job, nil
}

// BeginExecution asks the server to start the import. Completion must be
// observed by polling; this call only acknowledges the start.
func (c *Client) BeginExecution(ctx context.Context, jobID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&errorBody{}).
		Post(fmt.Sprintf("/api/v1/migrations/%s/execute", jobID))
	if err != nil {
		return fmt.Errorf("begin execution for job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return apiErr(resp)
	}
	return nil
}

// GetProgress fetches the lightweight progress shape for a running job.
func (c *Client) GetProgress(ctx context.Context, jobID string) (*domain.ProgressDelta, error) {
	var delta domain.ProgressDelta
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&delta).
		SetError(&errorBody{}).
		Get(fmt.Sprintf("/api/v1/migrations/%s/progress", jobID))
	if err != nil {
		return nil, fmt.Errorf("fetch progress for job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &delta, nil
}

// Rollback invokes the compensating rollback on a completed job. The server
// rejects it for any other status.
func (c *Client) Rollback(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	var job domain.MigrationJob
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&job).
		SetError(&errorBody{}).
		Post(fmt.Sprintf("/api/v1/migrations/%s/rollback", jobID))
	if err != nil {
		return nil, fmt.Errorf("rollback job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &job, nil
}

// GetSchema fetches the target entity schema for an entity type. Schemas are
// read-only for the session, so results are cached per type.
func (c *Client) GetSchema(ctx context.Context, entityType string) (*domain.TargetEntitySchema, error) {
	c.schemaMu.Lock()
	if schema, ok := c.schemas[entityType]; ok {
		c.schemaMu.Unlock()
		return schema, nil
	}
	c.schemaMu.Unlock()

	var schema domain.TargetEntitySchema
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&schema).
		SetError(&errorBody{}).
		Get(fmt.Sprintf("/api/v1/schemas/%s", entityType))
	if err != nil {
		return nil, fmt.Errorf("fetch schema for %s: %w", entityType, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}

	c.schemaMu.Lock()
	c.schemas[entityType] = &schema
	c.schemaMu.Unlock()
	return &schema, nil
}
