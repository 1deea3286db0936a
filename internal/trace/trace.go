// Package trace implements the Execution Trace Store (C3): the canonical,
// append-only list of ExecutionStep records for a job. Writes always go
// through blob storage — never inline on the job record — to escape
// per-record size limits, matching the original's db_service.py
// blob-spillover strategy. The teacher's apps/cli/internal/persistence
// append-only JSONL idiom grounds the re-read-before-append discipline
// here (generalized from a local file to a blob Get/Put round trip).
package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/joberrors"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// BlobKey returns the canonical trace blob key for a job.
func BlobKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/execution_steps.json", jobID)
}

// Store wraps an ObjectStore + RecordStore pair to provide the staleness-
// safe trace read/append/write contract.
type Store struct {
	objects ports.ObjectStore
	records ports.RecordStore
}

// New builds a Store.
func New(objects ports.ObjectStore, records ports.RecordStore) *Store {
	return &Store{objects: objects, records: records}
}

// Load returns the current trace for job, fetching the blob if the job
// record carries ExecutionStepsBlobKey, or its inline ExecutionSteps
// otherwise (e.g. a freshly created job with no prior steps).
func (s *Store) Load(ctx context.Context, job *models.Job) ([]models.ExecutionStep, error) {
	if job.ExecutionStepsBlobKey == "" {
		return append([]models.ExecutionStep{}, job.ExecutionSteps...), nil
	}
	raw, err := s.objects.Get(ctx, job.ExecutionStepsBlobKey)
	if err != nil {
		return nil, fmt.Errorf("load execution trace blob %s: %w", job.ExecutionStepsBlobKey, err)
	}
	var steps []models.ExecutionStep
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("decode execution trace blob %s: %w", job.ExecutionStepsBlobKey, err)
	}
	return steps, nil
}

// Append re-reads the current trace from blob storage (to avoid losing
// entries written by parallel siblings — the staleness rule in spec.md
// §4.3), appends step, writes the whole trace back as a single blob put,
// and updates job's ExecutionStepsBlobKey. It does not write the job
// record itself; callers persist the job separately.
func (s *Store) Append(ctx context.Context, job *models.Job, step models.ExecutionStep) ([]models.ExecutionStep, error) {
	current, err := s.Load(ctx, job)
	if err != nil {
		return nil, joberrors.TracePersistence(err)
	}
	current = append(current, step)
	if err := s.write(ctx, job, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Rewrite re-reads the current trace, applies mutate to it, and writes
// the result back. Used by the finalizer and single-step rerun, which
// must merge rather than overwrite with a stale in-memory copy.
func (s *Store) Rewrite(ctx context.Context, job *models.Job, mutate func([]models.ExecutionStep) []models.ExecutionStep) ([]models.ExecutionStep, error) {
	current, err := s.Load(ctx, job)
	if err != nil {
		return nil, joberrors.TracePersistence(err)
	}
	next := mutate(current)
	if err := s.write(ctx, job, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Store) write(ctx context.Context, job *models.Job, steps []models.ExecutionStep) error {
	raw, err := json.Marshal(steps)
	if err != nil {
		return joberrors.TracePersistence(err)
	}
	key := BlobKey(job.JobID)
	if _, err := s.objects.Put(ctx, key, raw, "application/json"); err != nil {
		return joberrors.TracePersistence(err)
	}
	job.ExecutionStepsBlobKey = key
	job.ExecutionSteps = nil
	return nil
}
