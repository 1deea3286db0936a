package finalize

import (
	"context"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// ArtifactStore persists the finalized deliverable as an immutable blob.
type ArtifactStore interface {
	Store(ctx context.Context, tenantID, jobID, name string, content []byte, contentType string) (*models.Artifact, error)
}

// ModelCaller drives the final HTML-rendering model call and, when SMS
// delivery is configured, the short delivery-copy call.
type ModelCaller interface {
	Call(ctx context.Context, req map[string]any) (outputText string, imageURLs []string, safetyChecks []models.SafetyCheck, usage models.Usage, err error)
}

// WebhookSender issues the completion-delivery webhook call.
type WebhookSender interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (status int, respBody []byte, durationMs int64, err error)
}

// SmsSender issues the completion-delivery SMS.
type SmsSender interface {
	Send(ctx context.Context, toPhone, fromPhone, body string) error
}

// Notifier records a best-effort, in-app notification of job completion.
type Notifier interface {
	PutNotification(ctx context.Context, tenantID, jobID, kind, message string) error
}

// TrackingInjector inserts the engine's tracking script into an HTML
// deliverable.
type TrackingInjector interface {
	Inject(html string) string
}
