package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/webhookadapters"
)

// Webhook builds and sends an outbound HTTP call, per spec §4.8.2. It
// supports both the custom-template body mode and the structured
// auto-payload mode, and dispatches Slack-shaped payloads through the
// webhookadapters Slack adapter when the target URL or webhook_type
// names Slack.
type Webhook struct {
	deps Deps
}

func (h *Webhook) Execute(ctx context.Context, in Input) (models.StepOutput, error) {
	step := in.Step
	if step.WebhookURL == "" {
		return models.StepOutput{}, fmt.Errorf("handler: webhook step %q has no webhook_url", step.Name)
	}

	method := step.WebhookMethod
	if method == "" {
		method = "POST"
	}

	body, contentType, err := h.buildBody(in)
	if err != nil {
		return models.StepOutput{}, fmt.Errorf("handler: webhook step %q: build body: %w", step.Name, err)
	}

	headers := map[string]string{"Content-Type": contentType}
	for k, v := range step.WebhookHeaders {
		headers[k] = v
	}

	status, respBody, durationMs, err := h.deps.Webhook.Send(ctx, method, step.WebhookURL, headers, body)
	if err != nil {
		return models.StepOutput{}, fmt.Errorf("handler: webhook step %q: send: %w", step.Name, err)
	}

	success := status >= 200 && status < 300
	return models.StepOutput{
		StepName:  step.Name,
		StepIndex: in.StepIndex,
		Output:    string(respBody),
		Extras: map[string]any{
			"response_status": status,
			"response_body":   string(respBody),
			"success":         success,
			"duration_ms":     durationMs,
		},
	}, nil
}

// buildBody picks the custom-template or auto-payload body mode.
func (h *Webhook) buildBody(in Input) ([]byte, string, error) {
	step := in.Step
	contentType := "application/json"
	for k, v := range step.WebhookHeaders {
		if strings.EqualFold(k, "Content-Type") {
			contentType = v
		}
	}

	if step.WebhookTemplate != "" {
		renderCtx := h.templateContext(in)
		rendered, err := h.deps.Template.Render(step.WebhookTemplate, renderCtx)
		if err != nil {
			return nil, contentType, err
		}
		if strings.Contains(contentType, "json") {
			if json.Valid([]byte(rendered)) {
				return []byte(rendered), contentType, nil
			}
			wrapped, _ := json.Marshal(map[string]string{"raw_body": rendered})
			return wrapped, contentType, nil
		}
		return []byte(rendered), contentType, nil
	}

	if webhookadapters.IsSlackTarget(step.WebhookType, step.WebhookURL) {
		var lastOutput string
		var imageURLs []string
		if n := len(in.StepOutputs); n > 0 {
			lastOutput = in.StepOutputs[n-1].Output
			imageURLs = in.StepOutputs[n-1].ImageURLs
		}
		body, err := webhookadapters.BuildSlackPayload(fmt.Sprintf("%s completed", step.Name), lastOutput, imageURLs)
		return body, contentType, err
	}

	payload := h.autoPayload(in)
	b, err := json.Marshal(payload)
	return b, contentType, err
}

func (h *Webhook) templateContext(in Input) map[string]any {
	ctx := map[string]any{
		"step_outputs":         in.StepOutputs,
		"deliverable_context":  in.Deliverable,
	}
	if in.Submission != nil {
		ctx["submission"] = in.Submission.SubmissionData
		ctx["submission_meta"] = in.Submission.FieldLabels
	}
	ctx["job"] = map[string]any{"job_id": in.JobID, "tenant_id": in.TenantID}
	return ctx
}

// autoPayload builds the structured fallback body named in spec §4.8.2,
// honoring exclude_step_indices and the include flags on the step.
func (h *Webhook) autoPayload(in Input) map[string]any {
	stepOutputs := map[string]any{}
	for _, so := range in.StepOutputs {
		if contains(in.Step.ExcludeStepIdxs, so.StepIndex) {
			continue
		}
		stepOutputs[fmt.Sprintf("step_%d", so.StepIndex)] = map[string]any{
			"step_name":   so.StepName,
			"step_index":  so.StepIndex,
			"output":      so.Output,
			"artifact_id": so.ArtifactID,
			"image_urls":  so.ImageURLs,
		}
	}

	payload := map[string]any{
		"job_info":            map[string]any{"job_id": in.JobID, "tenant_id": in.TenantID},
		"step_outputs":        stepOutputs,
		"deliverable_context": in.Deliverable,
	}
	if in.Submission != nil {
		payload["submission_data"] = in.Submission.SubmissionData
	}
	if in.Step.IncludeArtifacts {
		var artifactIDs []string
		for _, so := range in.StepOutputs {
			if so.ArtifactID != "" {
				artifactIDs = append(artifactIDs, so.ArtifactID)
			}
		}
		payload["artifacts"] = artifactIDs
	}
	if in.Step.IncludeImages {
		var images []string
		for _, so := range in.StepOutputs {
			images = append(images, so.ImageURLs...)
		}
		payload["images"] = images
	}
	return payload
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
