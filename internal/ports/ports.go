// Package ports defines the interfaces the workflow execution engine
// consumes but does not implement: object storage, a key/value record
// store, the LLM provider, the browser/VM driver, the shell executor, the
// outbound HTTP client, secrets, SMS, and the record-store notifications
// surface. Reference implementations of each live in sibling internal/
// packages; production deployments may swap any of them.
package ports

import (
	"context"
	"time"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// ObjectStore puts, gets, and presigns blobs.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (blobURL string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	// PublicURL returns the durable or CDN-backed public URL for key
	// without a network round trip.
	PublicURL(key string) string
}

// RecordStore is the key/value row store for jobs, workflows, submissions,
// templates, artifacts, usage, and notifications.
type RecordStore interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	PutJob(ctx context.Context, job *models.Job) error

	GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error)
	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)

	PutArtifact(ctx context.Context, artifact *models.Artifact) error
	GetArtifact(ctx context.Context, artifactID string) (*models.Artifact, error)

	PutUsageRecord(ctx context.Context, rec *models.UsageRecord) error

	PutNotification(ctx context.Context, tenantID, jobID, kind, message string) error
}

// ModelProvider is a Responses-API-shaped LLM client.
type ModelProvider interface {
	// CreateResponse issues one model call and returns the raw response.
	// req and the returned response are the wire shapes defined in
	// internal/llm; callers build/parse with that package.
	CreateResponse(ctx context.Context, req map[string]any) (map[string]any, error)
}

// ComputerAction is a single driver-executed action (click, type, scroll,
// keypress, wait, drag, navigate, screenshot).
type ComputerAction struct {
	Type string         `json:"type"`
	Args map[string]any `json:"-"`
}

// ComputerDriver drives a browser/VM synchronously.
type ComputerDriver interface {
	Initialize(ctx context.Context, widthPx, heightPx int) error
	ExecuteAction(ctx context.Context, action ComputerAction) error
	Screenshot(ctx context.Context) ([]byte, error)
	GetURL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Cleanup(ctx context.Context) error
}

// ShellCommandResult is the outcome of one command in a batch.
type ShellCommandResult struct {
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Outcome string `json:"outcome,omitempty"`
}

// ShellBatch is a batch of commands to run in a persistent workspace.
type ShellBatch struct {
	WorkspaceID     string
	Commands        []string
	TimeoutMs       int64
	MaxOutputLength int
	ResetWorkspace  bool
}

// ShellRunner runs a command batch in a persistent workspace identified by
// WorkspaceID, optionally uploading declared outputs afterward.
type ShellRunner interface {
	Run(ctx context.Context, batch ShellBatch) ([]ShellCommandResult, error)
}

// HttpClient is the outbound HTTP collaborator used for webhooks and model
// provider calls that aren't routed through a dedicated SDK.
type HttpClient interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (status int, respBody []byte, err error)
}

// SecretProvider resolves named secrets (API keys, webhook signing keys).
type SecretProvider interface {
	Get(ctx context.Context, name string) (string, error)
}

// SmsGateway sends a rendered SMS message.
type SmsGateway interface {
	Send(ctx context.Context, toPhone, fromPhone, body string) error
}

// TrackingInjector injects a tracking script into an HTML deliverable.
type TrackingInjector interface {
	Inject(html string) string
}

// TemplateRenderer renders a dotted-path `{{a.b.c}}` template against a
// context map.
type TemplateRenderer interface {
	Render(template string, context map[string]any) (string, error)
}
