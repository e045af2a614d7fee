package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/davidlin/dataport/internal/client"
	"github.com/davidlin/dataport/internal/domain"
	"github.com/davidlin/dataport/internal/logger"
)

// MappingReconciler merges user edits to the column→field mapping with the
// system-suggested mapping and checks completeness against the target
// schema before allowing a save.
type MappingReconciler struct {
	api    JobAPI
	store  *SnapshotStore
	schema *domain.TargetEntitySchema
	jobID  string

	mu             sync.Mutex
	mapping        domain.FieldMapping
	strategy       domain.DedupStrategy
	suggestionSeen bool
}

// NewMappingReconciler creates a reconciler for the given job, seeded from
// whatever mapping the current snapshot already carries.
func NewMappingReconciler(api JobAPI, store *SnapshotStore, schema *domain.TargetEntitySchema, jobID string) *MappingReconciler {
	r := &MappingReconciler{
		api:      api,
		store:    store,
		schema:   schema,
		jobID:    jobID,
		mapping:  domain.FieldMapping{},
		strategy: domain.DedupSkip,
	}
	if snap := store.Get(); snap != nil {
		if snap.FieldMapping != nil {
			r.mapping = snap.FieldMapping.Clone()
		}
		if snap.DedupStrategy != "" {
			r.strategy = snap.DedupStrategy
		}
	}
	return r
}

// Mapping returns a copy of the working mapping.
func (r *MappingReconciler) Mapping() domain.FieldMapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mapping.Clone()
}

// Strategy returns the current dedup strategy.
func (r *MappingReconciler) Strategy() domain.DedupStrategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.strategy
}

// SetStrategy sets the dedup strategy carried with the next save.
func (r *MappingReconciler) SetStrategy(s domain.DedupStrategy) error {
	if !s.Valid() {
		return fmt.Errorf("unknown dedup strategy %q", s)
	}
	r.mu.Lock()
	r.strategy = s
	r.mu.Unlock()
	return nil
}

// OfferSuggestion presents a suggested mapping to the reconciler. The
// suggestion is adopted verbatim only on its first offer and only while the
// working mapping is still empty; later offers never overwrite user edits,
// no matter where the suggestion came from. Returns whether it was adopted.
func (r *MappingReconciler) OfferSuggestion(suggestion domain.FieldMapping) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suggestionSeen {
		return false
	}
	r.suggestionSeen = true
	if len(r.mapping) > 0 || len(suggestion) == 0 {
		return false
	}
	for col, target := range suggestion {
		if target == "" {
			continue
		}
		r.mapping[col] = target
	}
	return len(r.mapping) > 0
}

// FetchSuggestion fetches the one-shot mapping suggestion from the server
// and offers it. Safe to call more than once; only the first offer can
// auto-apply.
func (r *MappingReconciler) FetchSuggestion(ctx context.Context) (bool, error) {
	suggestion, err := r.api.SuggestMapping(ctx, r.jobID)
	if err != nil {
		return false, err
	}
	applied := r.OfferSuggestion(suggestion)
	if applied {
		logger.With(logger.Fields{logger.FieldCount: len(suggestion)}).
			Info(ctx, "Applied suggested mapping")
	}
	return applied, nil
}

// SetTarget maps a single source column to a target field. An empty field
// removes the column's entry entirely; the mapping never stores an empty
// value. A target field already mapped from a different column is rejected
// with a TargetTakenError rather than silently allowed.
func (r *MappingReconciler) SetTarget(column, field string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if field == "" {
		delete(r.mapping, column)
		return nil
	}
	if !r.schema.HasField(field) {
		return fmt.Errorf("target field %q is not defined by the %s schema", field, r.schema.EntityType)
	}
	if from, ok := r.mapping.TargetOf(field); ok && from != column {
		return &TargetTakenError{Column: column, Field: field, MappedFrom: from}
	}
	r.mapping[column] = field
	return nil
}

// MissingRequired computes the required schema fields not covered by the
// working mapping, in schema order.
func (r *MappingReconciler) MissingRequired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return missingRequired(r.schema, r.mapping)
}

func missingRequired(schema *domain.TargetEntitySchema, mapping domain.FieldMapping) []string {
	targets := mapping.Targets()
	var missing []string
	for _, field := range schema.RequiredFields() {
		if _, ok := targets[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// Save persists the mapping together with the dedup policy as one atomic
// request. Refused locally while required fields are missing. On success
// the returned snapshot replaces the cached one; if the job had already
// been validated, the server resets it to mapped and drops the stale
// validation result, which the replacement reflects as-is.
func (r *MappingReconciler) Save(ctx context.Context) (*domain.MigrationJob, error) {
	r.mu.Lock()
	mapping := r.mapping.Clone()
	strategy := r.strategy
	r.mu.Unlock()

	if missing := missingRequired(r.schema, mapping); len(missing) > 0 {
		return nil, &MappingIncompleteError{Missing: missing}
	}

	job, err := r.api.SaveMapping(ctx, r.jobID, &client.SaveMappingRequest{
		FieldMapping:  mapping,
		DedupStrategy: strategy,
		DedupFields:   r.schema.UniqueFields,
	})
	if err != nil {
		return nil, err
	}
	r.store.Replace(r.jobID, job)
	return job, nil
}
