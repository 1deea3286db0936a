package handler

import (
	"context"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

func TestShellStepRunsDirectBatchWithoutModel(t *testing.T) {
	runner := &fakeShellExecer{output: "done"}
	h := &ShellStep{deps: Deps{Shell: runner}}

	out, err := h.Execute(context.Background(), Input{
		Step: models.Step{
			Name:         "cleanup",
			Instructions: "# remove temp files\nrm -rf /tmp/work\necho done",
		},
		StepIndex: 0,
		JobID:     "job-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Output != "done" {
		t.Errorf("unexpected output: %q", out.Output)
	}
	if len(runner.lastCommands) != 2 {
		t.Fatalf("expected comment line filtered out, got %v", runner.lastCommands)
	}
	if !runner.lastReset {
		t.Error("expected workspace reset on the first step")
	}
}

func TestShellStepRoutesThroughModelWhenModelIDSet(t *testing.T) {
	provider := &fakeModelCaller{outputText: "ran via tool loop"}
	h := &ShellStep{deps: Deps{Provider: provider}}

	out, err := h.Execute(context.Background(), Input{
		Step: models.Step{Name: "automate", ModelID: "gpt-5", Instructions: "list the workspace files"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Output != "ran via tool loop" {
		t.Errorf("unexpected output: %q", out.Output)
	}
	tools, _ := provider.lastReq["tools"].([]map[string]any)
	if len(tools) != 1 || tools[0]["type"] != "shell" {
		t.Errorf("expected shell tool advertised, got %v", provider.lastReq["tools"])
	}
}

func TestShellStepErrorsOnEmptyInstructions(t *testing.T) {
	runner := &fakeShellExecer{}
	h := &ShellStep{deps: Deps{Shell: runner}}

	out, err := h.Execute(context.Background(), Input{Step: models.Step{Name: "noop"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != false {
		t.Fatalf("expected failure for empty instructions, got %v", out.Extras)
	}
}
