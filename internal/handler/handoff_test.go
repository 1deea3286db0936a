package handler

import (
	"context"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

func TestHandoffRejectsSelfHandoff(t *testing.T) {
	lookup := &fakeWorkflowLookup{}
	h := &Handoff{deps: Deps{Workflows: lookup}}

	out, err := h.Execute(context.Background(), Input{
		Step:       models.Step{Name: "handoff", HandoffTargetWorkflowID: "wf-1"},
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != false {
		t.Fatalf("expected self-handoff to be rejected, got %v", out.Extras)
	}
}

func TestHandoffRejectsCrossTenantTarget(t *testing.T) {
	lookup := &fakeWorkflowLookup{workflows: map[string]*models.Workflow{
		"wf-2": {WorkflowID: "wf-2", TenantID: "tenant-2"},
	}}
	h := &Handoff{deps: Deps{Workflows: lookup}}

	out, err := h.Execute(context.Background(), Input{
		Step:       models.Step{Name: "handoff", HandoffTargetWorkflowID: "wf-2"},
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != false {
		t.Fatalf("expected cross-tenant handoff to be rejected, got %v", out.Extras)
	}
}

func TestHandoffTriggersTargetWorkflowWithProjectedPayload(t *testing.T) {
	lookup := &fakeWorkflowLookup{
		workflows: map[string]*models.Workflow{"wf-2": {WorkflowID: "wf-2", TenantID: "tenant-1"}},
		jobID:     "job-99",
		status:    202,
	}
	h := &Handoff{deps: Deps{Workflows: lookup}}

	out, err := h.Execute(context.Background(), Input{
		Step: models.Step{
			Name:                    "handoff",
			HandoffTargetWorkflowID: "wf-2",
			HandoffPayloadMode:      "submission_only",
		},
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
		JobID:      "job-1",
		Submission: &models.Submission{SubmissionData: map[string]string{"email": "a@b.com"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != true {
		t.Fatalf("expected success, got %v", out.Extras)
	}
	if lookup.lastPayload["source_workflow_id"] != "wf-1" {
		t.Errorf("expected source_workflow_id to be the originating workflow, got %v", lookup.lastPayload["source_workflow_id"])
	}
	submissionData, _ := lookup.lastPayload["submission_data"].(map[string]string)
	if submissionData["email"] != "a@b.com" {
		t.Errorf("expected submission_only payload mode to carry submission data, got %v", lookup.lastPayload)
	}
}
