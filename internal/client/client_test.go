package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/davidlin/dataport/internal/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(&Config{BaseURL: srv.URL, APIKey: "test-key"})
	return c, srv
}

func TestGetJobParsesSnapshot(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/migrations/job-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "job-1",
			"entity_type": "contact",
			"status": "validated",
			"total_rows": 100,
			"source_columns": ["name", "email"],
			"field_mapping": {"name": "full_name"},
			"validation": {"is_valid": true, "error_count": 0, "warning_count": 2}
		}`)
	}))
	defer srv.Close()

	job, err := c.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusValidated {
		t.Errorf("status = %q, want validated", job.Status)
	}
	if job.FieldMapping["name"] != "full_name" {
		t.Errorf("field_mapping = %v", job.FieldMapping)
	}
	if job.Validation == nil || !job.Validation.IsValid || job.Validation.WarningCount != 2 {
		t.Errorf("validation = %+v", job.Validation)
	}
}

func TestErrorEnvelopeSurfaced(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error": "job is not rollbackable"}`)
	}))
	defer srv.Close()

	_, err := c.Rollback(context.Background(), "job-1")
	var apiError *APIError
	if !errors.As(err, &apiError) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiError.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiError.StatusCode)
	}
	if apiError.Message != "job is not rollbackable" {
		t.Errorf("message = %q", apiError.Message)
	}
}

func TestSaveMappingPayload(t *testing.T) {
	var got SaveMappingRequest
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "job-1", "status": "mapped"}`)
	}))
	defer srv.Close()

	req := &SaveMappingRequest{
		FieldMapping:  domain.FieldMapping{"name": "full_name", "email": "email_address"},
		DedupStrategy: domain.DedupOverwrite,
		DedupFields:   []string{"email_address"},
	}
	job, err := c.SaveMapping(context.Background(), "job-1", req)
	if err != nil {
		t.Fatalf("SaveMapping: %v", err)
	}
	if job.Status != domain.JobStatusMapped {
		t.Errorf("status = %q, want mapped", job.Status)
	}
	if got.DedupStrategy != domain.DedupOverwrite {
		t.Errorf("dedup_strategy = %q, want overwrite", got.DedupStrategy)
	}
	if got.FieldMapping["email"] != "email_address" {
		t.Errorf("field_mapping = %v", got.FieldMapping)
	}
	if len(got.DedupFields) != 1 || got.DedupFields[0] != "email_address" {
		t.Errorf("dedup_fields = %v", got.DedupFields)
	}
}

func TestUploadSourceIsMultipart(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "contacts.csv" {
			t.Errorf("filename = %q", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if !strings.HasPrefix(string(body), "name,email") {
			t.Errorf("file body = %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "job-1", "status": "uploaded", "total_rows": 2, "source_columns": ["name", "email"]}`)
	}))
	defer srv.Close()

	job, err := c.UploadSource(context.Background(), "job-1", "contacts.csv",
		strings.NewReader("name,email\nAda,ada@example.com\n"))
	if err != nil {
		t.Fatalf("UploadSource: %v", err)
	}
	if job.Status != domain.JobStatusUploaded || job.TotalRows != 2 {
		t.Errorf("job = %+v", job)
	}
}

func TestSuggestMappingUnwrapsEnvelope(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"suggestions": {"name": "full_name", "email": "email_address"}}`)
	}))
	defer srv.Close()

	suggestion, err := c.SuggestMapping(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("SuggestMapping: %v", err)
	}
	if suggestion["name"] != "full_name" || suggestion["email"] != "email_address" {
		t.Errorf("suggestion = %v", suggestion)
	}
}

func TestSchemaCachedPerEntityType(t *testing.T) {
	var hits atomic.Int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"entity_type": "contact",
			"fields": [
				{"name": "full_name", "required": true},
				{"name": "email_address", "required": true}
			],
			"unique_fields": ["email_address"]
		}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	first, err := c.GetSchema(ctx, "contact")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}
	second, err := c.GetSchema(ctx, "contact")
	if err != nil {
		t.Fatalf("GetSchema (cached): %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if first != second {
		t.Error("cached schema should be the same instance")
	}
	if got := first.RequiredFields(); len(got) != 2 {
		t.Errorf("required fields = %v", got)
	}
}

// A failed schema fetch must not poison the cache.
func TestSchemaFetchErrorNotCached(t *testing.T) {
	var hits atomic.Int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error": "try again"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"entity_type": "contact", "fields": []}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	if _, err := c.GetSchema(ctx, "contact"); err == nil {
		t.Fatal("first fetch should fail")
	}
	if _, err := c.GetSchema(ctx, "contact"); err != nil {
		t.Fatalf("retry should refetch, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}
