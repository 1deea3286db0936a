// Package handler implements the Step Handlers (C8): the five step kinds
// (ai_generation, webhook, workflow_handoff, shell, s3_upload) behind one
// shared contract, grounded on the uniform dispatch-by-name pattern in
// the teacher's tools.Registry.Dispatch (apps/cli/internal/heal/tools).
package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// Deps bundles every collaborator a handler might need. Individual
// handlers only touch the fields relevant to their kind; passing one
// struct keeps Dispatch's signature stable as new handlers are added.
type Deps struct {
	Artifacts ArtifactStore
	Objects   ObjectPutter
	Provider  ModelCaller
	Shell     ShellExecer
	Webhook   WebhookSender
	Workflows WorkflowLookup
	Template  TemplateRenderer
	Usage     UsageRecorder

	// ImageDownloader fetches a foreign image URL for re-upload. Nil means
	// foreign-hosted images are skipped rather than stored.
	ImageDownloader DownloadFunc

	Config Config
}

// Config carries the tunables a handler consults (timeouts, allow-lists).
type Config struct {
	WebhookTriggerTimeout time.Duration
	S3AllowedBuckets      []string
	S3DenylistedNames     []string
	PublicWebhookBaseURL  string
}

// Input is everything a handler needs about the step it's executing,
// matching the contract in spec §4.8:
// execute(step, step_index, job_id, tenant_id, previous_context,
// step_outputs[], execution_steps[]).
type Input struct {
	Step              models.Step
	StepIndex         int
	JobID             string
	TenantID          string
	WorkflowID        string
	SubmissionID      string
	Submission        *models.Submission
	PreviousContext   string
	PreviousImageURLs []string
	StepOutputs       []models.StepOutput
	Deliverable       string
}

// Handler executes one step kind.
type Handler interface {
	Execute(ctx context.Context, in Input) (models.StepOutput, error)
}

// Registry dispatches by StepKind.
type Registry struct {
	handlers map[models.StepKind]Handler
}

// NewRegistry builds the default registry wiring every step kind to its
// handler.
func NewRegistry(deps Deps) *Registry {
	return &Registry{handlers: map[models.StepKind]Handler{
		models.StepAIGeneration:    &AIGeneration{deps: deps},
		models.StepWebhook:         &Webhook{deps: deps},
		models.StepWorkflowHandoff: &Handoff{deps: deps},
		models.StepShell:           &ShellStep{deps: deps},
		models.StepS3Upload:        &S3Upload{deps: deps},
	}}
}

// Dispatch routes in.Step.Kind to its handler.
func (r *Registry) Dispatch(ctx context.Context, in Input) (models.StepOutput, error) {
	h, ok := r.handlers[in.Step.Kind]
	if !ok {
		return models.StepOutput{}, fmt.Errorf("handler: no handler registered for step kind %q", in.Step.Kind)
	}
	return h.Execute(ctx, in)
}
