package context

import (
	"strings"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

func TestFormBlockOrdersByFieldAndResolvesLabels(t *testing.T) {
	sub := &models.Submission{
		SubmissionData: map[string]string{"email": "a@b.com", "name": "Ada"},
		FieldLabels:    map[string]string{"email": "Email Address"},
	}
	out := FormBlock(sub)
	if !strings.Contains(out, "Email Address: a@b.com") {
		t.Errorf("expected resolved label in output, got %q", out)
	}
	if !strings.Contains(out, "name: Ada") {
		t.Errorf("expected fallback to field id, got %q", out)
	}
}

func TestStepBlockIncludesImages(t *testing.T) {
	out := StepBlock(1, "Research", "the output", []string{"https://a", "https://b"})
	if !strings.Contains(out, "Step 1: Research") || !strings.Contains(out, "- https://a") {
		t.Errorf("unexpected step block: %q", out)
	}
}

func TestBuildPerStepHonorsDeps(t *testing.T) {
	steps := []models.RuntimeStep{
		{Step: models.Step{Name: "A", StepOrder: 0}, Output: "out-a"},
		{Step: models.Step{Name: "B", StepOrder: 1}, Output: "out-b"},
	}
	got := Build(ModePerStep, nil, steps, 2, []int{1})
	if strings.Contains(got, "out-a") {
		t.Errorf("expected dep-filtered context to exclude step 0, got %q", got)
	}
	if !strings.Contains(got, "out-b") {
		t.Errorf("expected dep-filtered context to include step 1, got %q", got)
	}
}

func TestDeliverableContextDefaultsToLastStep(t *testing.T) {
	steps := []models.RuntimeStep{
		{Step: models.Step{Name: "A", StepOrder: 0}, Output: "out-a"},
		{Step: models.Step{Name: "B", StepOrder: 1}, Output: "out-b"},
	}
	got := DeliverableContext(steps)
	if !strings.Contains(got, "out-b") || strings.Contains(got, "out-a") {
		t.Errorf("expected only last step, got %q", got)
	}
}

func TestDeliverableContextConcatenatesTaggedStepsInOrder(t *testing.T) {
	steps := []models.RuntimeStep{
		{Step: models.Step{Name: "A", StepOrder: 0, IsDeliverable: true}, Output: "out-a"},
		{Step: models.Step{Name: "B", StepOrder: 1}, Output: "out-b"},
		{Step: models.Step{Name: "C", StepOrder: 2, IsDeliverable: true}, Output: "out-c"},
	}
	got := DeliverableContext(steps)
	if strings.Index(got, "out-a") > strings.Index(got, "out-c") {
		t.Errorf("expected ascending step_order concatenation, got %q", got)
	}
	if strings.Contains(got, "out-b") {
		t.Errorf("expected untagged step to be excluded, got %q", got)
	}
}
