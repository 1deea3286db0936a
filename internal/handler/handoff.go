package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// Handoff triggers another workflow via the public webhook-trigger
// endpoint, per spec §4.8.3: validates the target workflow exists and
// belongs to the same tenant, rejects self-handoff, and projects the
// submission according to HandoffPayloadMode.
type Handoff struct {
	deps Deps
}

func (h *Handoff) Execute(ctx context.Context, in Input) (models.StepOutput, error) {
	step := in.Step
	if step.HandoffTargetWorkflowID == "" {
		return models.StepOutput{}, fmt.Errorf("handler: handoff step %q has no target workflow", step.Name)
	}

	if step.HandoffTargetWorkflowID == in.WorkflowID {
		return errorOutput(step, in.StepIndex, "self-handoff is not allowed"), nil
	}

	target, err := h.deps.Workflows.GetWorkflow(ctx, step.HandoffTargetWorkflowID)
	if err != nil {
		return models.StepOutput{}, fmt.Errorf("handler: handoff step %q: lookup target: %w", step.Name, err)
	}
	if target == nil {
		return errorOutput(step, in.StepIndex, "target workflow not found"), nil
	}
	if target.TenantID != in.TenantID {
		return errorOutput(step, in.StepIndex, "target workflow belongs to a different tenant"), nil
	}

	payload := h.projectPayload(in, step)
	payload["source_job_id"] = in.JobID
	payload["source_workflow_id"] = in.WorkflowID
	payload["source_step_index"] = in.StepIndex
	payload["bypass_required_inputs"] = step.HandoffBypassRequired
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	jobID, status, err := h.deps.Workflows.TriggerJob(ctx, step.HandoffTargetWorkflowID, in.TenantID, payload)
	if err != nil {
		return errorOutput(step, in.StepIndex, err.Error()), nil
	}

	return models.StepOutput{
		StepName:  step.Name,
		StepIndex: in.StepIndex,
		Output:    fmt.Sprintf("triggered job %s", jobID),
		Extras: map[string]any{
			"triggered_job_id": jobID,
			"success":          status >= 200 && status < 300,
			"response_status":  status,
		},
	}, nil
}

func (h *Handoff) projectPayload(in Input, step models.Step) map[string]any {
	switch step.HandoffPayloadMode {
	case "submission_only":
		if in.Submission != nil {
			return map[string]any{"submission_data": in.Submission.SubmissionData}
		}
		return map[string]any{}
	case "deliverable_output":
		return map[string]any{"deliverable_output": in.Deliverable}
	case "full_context":
		out := map[string]any{"step_outputs": in.StepOutputs}
		if in.Submission != nil {
			out["submission_data"] = in.Submission.SubmissionData
		}
		return out
	default: // previous_step_output
		if len(in.StepOutputs) == 0 {
			return map[string]any{}
		}
		last := in.StepOutputs[len(in.StepOutputs)-1]
		return map[string]any{"previous_step_output": last.Output}
	}
}

func errorOutput(step models.Step, stepIndex int, message string) models.StepOutput {
	return models.StepOutput{
		StepName:  step.Name,
		StepIndex: stepIndex,
		Output:    message,
		Extras:    map[string]any{"success": false, "error": message},
	}
}
