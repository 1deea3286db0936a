// Package models defines the core data types shared across the workflow
// execution engine: jobs, workflows, submissions, runtime steps, execution
// trace records, artifacts, and usage rows.
package models

import "time"

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ErrorClassification is the taxonomy a failed job is tagged with.
type ErrorClassification string

const (
	ErrAuthentication ErrorClassification = "authentication"
	ErrRateLimit      ErrorClassification = "rate_limit"
	ErrModelNotFound  ErrorClassification = "model_not_found"
	ErrTimeout        ErrorClassification = "timeout"
	ErrValidation     ErrorClassification = "validation"
	ErrSafety         ErrorClassification = "safety"
	ErrUnknown        ErrorClassification = "unknown"
)

// StepKind enumerates the handler a workflow step dispatches to.
type StepKind string

const (
	StepAIGeneration   StepKind = "ai_generation"
	StepWebhook        StepKind = "webhook"
	StepWorkflowHandoff StepKind = "workflow_handoff"
	StepShell          StepKind = "shell"
	StepS3Upload       StepKind = "s3_upload"
)

// ToolChoice mirrors the Responses API tool_choice enum.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// TriggerAction distinguishes a full job run from a single-step rerun.
type TriggerAction string

const (
	ActionProcessJob        TriggerAction = "process_job"
	ActionProcessSingleStep TriggerAction = "process_single_step"
)

// Trigger is the inbound message that places a job onto the orchestrator.
// The core never owns the queue that produces it.
type Trigger struct {
	JobID        string        `json:"job_id"`
	TenantID     string        `json:"tenant_id"`
	WorkflowID   string        `json:"workflow_id"`
	SubmissionID string        `json:"submission_id"`
	Action       TriggerAction `json:"action"`
	StepIndex    *int          `json:"step_index,omitempty"`
}

// Job is the top-level unit of work the orchestrator drives to completion.
//
// Invariants: a Job never leaves JobCompleted/JobFailed once it reaches
// either; ExecutionSteps is the single source of truth for the trace, and
// when stored out of band only ExecutionStepsBlobKey appears on the record.
type Job struct {
	JobID        string    `json:"job_id"`
	TenantID     string    `json:"tenant_id"`
	WorkflowID   string    `json:"workflow_id"`
	SubmissionID string    `json:"submission_id"`
	Status       JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	OutputURL string   `json:"output_url,omitempty"`
	Artifacts []string `json:"artifacts"`

	// ExecutionSteps is the inline trace; ExecutionStepsBlobKey, when set,
	// means the trace lives in blob storage and this slice must be empty.
	ExecutionSteps        []ExecutionStep `json:"execution_steps,omitempty"`
	ExecutionStepsBlobKey string          `json:"execution_steps_blob_key,omitempty"`

	ErrorType    ErrorClassification `json:"error_type,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`

	// RetryCount/MaxRetries track requeue attempts; the orchestrator
	// increments RetryCount on a failed-then-requeued run but never acts on
	// it directly — requeueing is the trigger fabric's responsibility.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// DeliveryKind distinguishes the three ways a finalized job may notify a
// tenant of completion.
type DeliveryKind string

const (
	DeliveryNone    DeliveryKind = "none"
	DeliveryWebhook DeliveryKind = "webhook"
	DeliverySMS     DeliveryKind = "sms"
)

// DeliveryConfig is a typed discriminated config for job-completion delivery,
// replacing a loose field bag so each mode's required fields are explicit.
type DeliveryConfig struct {
	Kind DeliveryKind `json:"kind"`

	WebhookURL     string            `json:"webhook_url,omitempty"`
	WebhookHeaders map[string]string `json:"webhook_headers,omitempty"`

	SMSToField   string `json:"sms_to_field,omitempty"`
	SMSFromPhone string `json:"sms_from_phone,omitempty"`
}

// OutputConfig configures the s3_upload step kind.
type OutputConfig struct {
	SourceType      string `json:"source_type,omitempty"` // text_content | file
	SourcePath      string `json:"source_path,omitempty"`
	DestinationPath string `json:"destination_path,omitempty"` // template
	ContentType     string `json:"content_type,omitempty"`
}

// Step is a workflow-authored step definition, as stored on a Workflow.
type Step struct {
	Name      string   `json:"name"`
	StepOrder int      `json:"step_order"`
	Kind      StepKind `json:"kind"`

	// DependsOn entries are author-written and may reference either a
	// step_order value or an array index; the dag package normalizes them.
	DependsOn []any `json:"depends_on,omitempty"`

	ModelID      string     `json:"model_id,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Tools        []any      `json:"tools,omitempty"`
	ToolChoice   ToolChoice `json:"tool_choice,omitempty"`

	ContinueOnError bool `json:"continue_on_error,omitempty"`
	IsDeliverable   bool `json:"is_deliverable,omitempty"`

	// Webhook-specific.
	WebhookURL       string            `json:"webhook_url,omitempty"`
	WebhookMethod    string            `json:"webhook_method,omitempty"`
	WebhookHeaders   map[string]string `json:"webhook_headers,omitempty"`
	WebhookTemplate  string            `json:"webhook_template,omitempty"`
	WebhookType      string            `json:"webhook_type,omitempty"`
	ExcludeStepIdxs  []int             `json:"exclude_step_indices,omitempty"`
	IncludeArtifacts bool              `json:"include_artifacts,omitempty"`
	IncludeImages    bool              `json:"include_images,omitempty"`

	// Handoff-specific.
	HandoffTargetWorkflowID string `json:"handoff_target_workflow_id,omitempty"`
	HandoffPayloadMode      string `json:"handoff_payload_mode,omitempty"` // previous_step_output|submission_only|full_context|deliverable_output
	HandoffBypassRequired   bool   `json:"handoff_bypass_required,omitempty"`

	// s3_upload-specific.
	OutputConfig *OutputConfig `json:"output_config,omitempty"`
}

// Workflow is the user-authored, ordered-but-parallelizable definition of a
// multi-step process executed once per submission.
type Workflow struct {
	WorkflowID     string         `json:"workflow_id"`
	TenantID       string         `json:"tenant_id"`
	Name           string         `json:"name"`
	Steps          []Step         `json:"steps"`
	DeliveryConfig DeliveryConfig `json:"delivery_config"`
	TemplateID     string         `json:"template_id,omitempty"`
	TemplateHTML   string         `json:"template_html,omitempty"`
	HTMLEnabled    bool           `json:"html_enabled"`
}

// Submission holds the form values a job was started from.
type Submission struct {
	SubmissionID   string            `json:"submission_id"`
	TenantID       string            `json:"tenant_id"`
	SubmissionData map[string]string `json:"submission_data"`
	FieldLabels    map[string]string `json:"field_labels,omitempty"`
}

// RuntimeStep augments an authored Step with per-run execution state.
type RuntimeStep struct {
	Step
	Index            int      `json:"index"`
	NormalizedDeps   []int    `json:"normalized_deps"`
	PreviousContext  string   `json:"previous_context"`
	Output           string   `json:"output"`
	ImageURLs        []string `json:"image_urls,omitempty"`
}

// Usage mirrors the Responses API usage object on a model reply.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ExecutionStep is one append-only trace record produced per executed step.
type ExecutionStep struct {
	StepName  string `json:"step_name"`
	StepOrder int    `json:"step_order"`
	StepType  string `json:"step_type"`

	Input  string `json:"input"` // redacted request
	Output string `json:"output"`

	ImageURLs []string `json:"image_urls,omitempty"`
	Usage     *Usage   `json:"usage,omitempty"`

	// AcknowledgedSafetyChecks records every computer-use pending safety
	// check this step auto-acknowledged, for audit.
	AcknowledgedSafetyChecks []SafetyCheck `json:"acknowledged_safety_checks,omitempty"`

	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`

	ArtifactID string `json:"artifact_id,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SafetyCheck is one pending safety check surfaced by a computer_call
// output item. The engine runs unattended, so every check is
// auto-acknowledged rather than routed to a human reviewer; the record
// exists so an operator can audit what was acknowledged after the fact.
type SafetyCheck struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ArtifactKind distinguishes stored blob content.
type ArtifactKind string

const (
	ArtifactText       ArtifactKind = "text"
	ArtifactImage      ArtifactKind = "image"
	ArtifactHTML       ArtifactKind = "html"
	ArtifactScreenshot ArtifactKind = "screenshot"
)

// Artifact is an immutable blob written during step execution or
// finalization.
type Artifact struct {
	ArtifactID string       `json:"artifact_id"`
	TenantID   string       `json:"tenant_id"`
	JobID      string       `json:"job_id"`
	Kind       ArtifactKind `json:"kind"`
	Name       string       `json:"name"`
	BlobKey    string       `json:"blob_key"`
	BlobURL    string       `json:"blob_url"`
	PublicURL  string       `json:"public_url"`
	IsPublic   bool         `json:"is_public"`
	Size       int64        `json:"size"`
	MIME       string       `json:"mime"`
	Checksum   string       `json:"checksum"` // sha256 hex
	CreatedAt  time.Time    `json:"created_at"`
}

// UsageRecord is a best-effort audit row written after each model call.
type UsageRecord struct {
	UsageID     string    `json:"usage_id"`
	TenantID    string    `json:"tenant_id"`
	JobID       string    `json:"job_id"`
	RequestID   string    `json:"request_id,omitempty"`
	Model       string    `json:"model"`
	InputTokens int64     `json:"input_tokens"`
	OutputTokens int64    `json:"output_tokens"`
	CostUSD     float64   `json:"cost_usd"`
	ServiceType string    `json:"service_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// StepOutput is the uniform result every step handler returns, per the
// shared handler contract.
type StepOutput struct {
	StepName         string   `json:"step_name"`
	StepIndex        int      `json:"step_index"`
	Output           string   `json:"output"`
	ArtifactID       string   `json:"artifact_id,omitempty"`
	ImageURLs        []string `json:"image_urls,omitempty"`
	ImageArtifactIDs []string `json:"image_artifact_ids,omitempty"`
	AcknowledgedSafetyChecks []SafetyCheck `json:"acknowledged_safety_checks,omitempty"`
	Extras           map[string]any `json:"extras,omitempty"`
}
