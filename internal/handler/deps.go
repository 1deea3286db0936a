package handler

import (
	"context"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// ArtifactStore is the narrow view of internal/artifact.Service that
// handlers need: store step output, look up a public URL.
type ArtifactStore interface {
	Store(ctx context.Context, tenantID, jobID, name string, content []byte, contentType string) (*models.Artifact, error)
	StoreImageFromURL(ctx context.Context, tenantID, jobID, name, rawURL string, download DownloadFunc) (*models.Artifact, error)
}

// DownloadFunc matches internal/image's decode-on-download signature
// without this package importing internal/image directly.
type DownloadFunc func(ctx context.Context, rawURL string) (ImageBytes, error)

// ImageBytes is the handler-local mirror of image.Decoded.
type ImageBytes struct {
	MIME string
	Data []byte
}

// ObjectPutter is the narrow object-store view the s3_upload handler
// needs (existence check for collision handling, direct put for
// non-artifact uploads).
type ObjectPutter interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	HeadExists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

// ModelCaller is the narrow view onto a tool-loop-wrapped model call: a
// handler builds a request map (internal/llm.Build) and gets back parsed
// output text, image URLs, and usage without needing to know which tool
// loop (if any) mediated the call.
type ModelCaller interface {
	Call(ctx context.Context, req map[string]any) (outputText string, imageURLs []string, safetyChecks []models.SafetyCheck, usage models.Usage, err error)
}

// UsageRecorder persists a best-effort audit row for one model call.
type UsageRecorder interface {
	PutUsageRecord(ctx context.Context, rec *models.UsageRecord) error
}

// ShellExecer runs a direct shell batch for steps declared pure-shell
// (no model).
type ShellExecer interface {
	RunBatch(ctx context.Context, workspaceID string, commands []string, resetWorkspace bool) (output string, err error)
}

// WebhookSender issues one outbound HTTP call and reports status/body.
type WebhookSender interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (status int, respBody []byte, durationMs int64, err error)
}

// WorkflowLookup resolves a workflow by id for handoff validation.
type WorkflowLookup interface {
	GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error)
	TriggerJob(ctx context.Context, workflowID, tenantID string, payload map[string]any) (jobID string, status int, err error)
}

// TemplateRenderer renders a dotted-path template against a context map.
type TemplateRenderer interface {
	Render(template string, context map[string]any) (string, error)
}
