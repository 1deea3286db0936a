package toolloop

import (
	"context"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

type fakeRunner struct {
	batches []ports.ShellBatch
}

func (r *fakeRunner) Run(ctx context.Context, batch ports.ShellBatch) ([]ports.ShellCommandResult, error) {
	r.batches = append(r.batches, batch)
	return []ports.ShellCommandResult{{Stdout: "ok", Outcome: "ok"}}, nil
}

func TestShellLoopExecutesCallAndSubmitsOutput(t *testing.T) {
	provider := &scriptedProvider{
		responses: []map[string]any{
			{
				"id": "resp_1",
				"output": []any{
					map[string]any{
						"type":    "shell_call",
						"call_id": "call_1",
						"action":  map[string]any{"commands": []any{"echo hi"}},
					},
				},
			},
			{"id": "resp_2", "output_text": "all done", "output": []any{}},
		},
	}
	runner := &fakeRunner{}
	loop := &Shell{Provider: provider, Runner: runner, WorkspaceID: "ws-1"}

	result := loop.Run(context.Background(), map[string]any{"model": "gpt-4.1", "input": "run something"})
	if result.Reason != ReasonCompleted {
		t.Fatalf("expected completed, got %v (err=%v)", result.Reason, result.Err)
	}
	if result.OutputText != "all done" {
		t.Errorf("unexpected output: %q", result.OutputText)
	}
	if len(runner.batches) != 1 {
		t.Fatalf("expected 1 batch executed, got %d", len(runner.batches))
	}
	if !runner.batches[0].ResetWorkspace {
		t.Error("expected first batch to request a workspace reset")
	}
	if len(runner.batches[0].Commands) != 1 || runner.batches[0].Commands[0] != "echo hi" {
		t.Errorf("unexpected commands: %v", runner.batches[0].Commands)
	}
}

func TestShellLoopCompletesImmediatelyWithNoShellCall(t *testing.T) {
	provider := &scriptedProvider{
		responses: []map[string]any{
			{"id": "resp_1", "output_text": "nothing to do", "output": []any{}},
		},
	}
	runner := &fakeRunner{}
	loop := &Shell{Provider: provider, Runner: runner, WorkspaceID: "ws-1"}

	result := loop.Run(context.Background(), map[string]any{"model": "gpt-4.1", "input": "noop"})
	if result.Reason != ReasonCompleted {
		t.Fatalf("expected completed, got %v", result.Reason)
	}
	if len(runner.batches) != 0 {
		t.Errorf("expected no batches executed, got %d", len(runner.batches))
	}
}
