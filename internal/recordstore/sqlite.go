// Package recordstore provides a reference RecordStore implementation
// backed by ncruces/go-sqlite3 (pure Go, no cgo), grounded on the
// teacher's apps/cli/internal/persistence/sqlite.go: pragma tuning for a
// single-writer workload, WAL mode, and a schema_version-gated migration
// list.
package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

const currentSchemaVersion = 1

// SQLiteStore implements ports.RecordStore.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed RecordStore at dsn
// (e.g. "file:worker.db").
func Open(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("recordstore: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("recordstore: exec %s: %w", p, err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("recordstore: create schema_version: %w", err)
	}
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("recordstore: query schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			workflow_id TEXT NOT NULL,
			submission_id TEXT NOT NULL,
			status TEXT NOT NULL,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS workflows (
			workflow_id TEXT PRIMARY KEY,
			body TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			submission_id TEXT PRIMARY KEY,
			body TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			artifact_id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			usage_id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			job_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("recordstore: migrate: %w", err)
		}
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`, currentSchemaVersion, time.Now().Unix()); err != nil {
		return fmt.Errorf("recordstore: record schema version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM jobs WHERE job_id = ?`, jobID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recordstore: job %s not found", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("recordstore: get job %s: %w", jobID, err)
	}
	var job models.Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return nil, fmt.Errorf("recordstore: decode job %s: %w", jobID, err)
	}
	return &job, nil
}

func (s *SQLiteStore) PutJob(ctx context.Context, job *models.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("recordstore: encode job %s: %w", job.JobID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (job_id, tenant_id, workflow_id, submission_id, status, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status, body = excluded.body, updated_at = excluded.updated_at
	`, job.JobID, job.TenantID, job.WorkflowID, job.SubmissionID, string(job.Status), body, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("recordstore: put job %s: %w", job.JobID, err)
	}
	return nil
}

func (s *SQLiteStore) GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM workflows WHERE workflow_id = ?`, workflowID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recordstore: workflow %s not found", workflowID)
	}
	if err != nil {
		return nil, fmt.Errorf("recordstore: get workflow %s: %w", workflowID, err)
	}
	var wf models.Workflow
	if err := json.Unmarshal([]byte(body), &wf); err != nil {
		return nil, fmt.Errorf("recordstore: decode workflow %s: %w", workflowID, err)
	}
	return &wf, nil
}

// PutWorkflow is a reference-store convenience not required by
// ports.RecordStore (workflows are typically authored out of band), kept
// for tests and local development seeding.
func (s *SQLiteStore) PutWorkflow(ctx context.Context, wf *models.Workflow) error {
	body, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("recordstore: encode workflow %s: %w", wf.WorkflowID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (workflow_id, body) VALUES (?, ?)
		ON CONFLICT(workflow_id) DO UPDATE SET body = excluded.body
	`, wf.WorkflowID, body)
	return err
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM submissions WHERE submission_id = ?`, submissionID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recordstore: submission %s not found", submissionID)
	}
	if err != nil {
		return nil, fmt.Errorf("recordstore: get submission %s: %w", submissionID, err)
	}
	var sub models.Submission
	if err := json.Unmarshal([]byte(body), &sub); err != nil {
		return nil, fmt.Errorf("recordstore: decode submission %s: %w", submissionID, err)
	}
	return &sub, nil
}

// PutSubmission mirrors PutWorkflow's local-seeding convenience.
func (s *SQLiteStore) PutSubmission(ctx context.Context, sub *models.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("recordstore: encode submission %s: %w", sub.SubmissionID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (submission_id, body) VALUES (?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET body = excluded.body
	`, sub.SubmissionID, body)
	return err
}

func (s *SQLiteStore) PutArtifact(ctx context.Context, artifact *models.Artifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("recordstore: encode artifact %s: %w", artifact.ArtifactID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (artifact_id, job_id, body, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(artifact_id) DO UPDATE SET body = excluded.body
	`, artifact.ArtifactID, artifact.JobID, body, artifact.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("recordstore: put artifact %s: %w", artifact.ArtifactID, err)
	}
	return nil
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, artifactID string) (*models.Artifact, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM artifacts WHERE artifact_id = ?`, artifactID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recordstore: artifact %s not found", artifactID)
	}
	if err != nil {
		return nil, fmt.Errorf("recordstore: get artifact %s: %w", artifactID, err)
	}
	var a models.Artifact
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("recordstore: decode artifact %s: %w", artifactID, err)
	}
	return &a, nil
}

func (s *SQLiteStore) PutUsageRecord(ctx context.Context, rec *models.UsageRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recordstore: encode usage record %s: %w", rec.UsageID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO usage_records (usage_id, job_id, body, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(usage_id) DO UPDATE SET body = excluded.body
	`, rec.UsageID, rec.JobID, body, rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("recordstore: put usage record %s: %w", rec.UsageID, err)
	}
	return nil
}

func (s *SQLiteStore) PutNotification(ctx context.Context, tenantID, jobID, kind, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (tenant_id, job_id, kind, message, created_at) VALUES (?, ?, ?, ?, ?)
	`, tenantID, jobID, kind, message, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("recordstore: put notification for job %s: %w", jobID, err)
	}
	return nil
}
