package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// ShellStep runs shell commands for a step, per spec §4.8.5. A step with
// a model_id drives the shell through a model call with the shell tool
// advertised (deps.Provider is expected to already be wrapped in the
// shell tool loop); a step with no model_id runs its instructions
// directly as a command batch against the workspace.
type ShellStep struct {
	deps Deps
}

func (h *ShellStep) Execute(ctx context.Context, in Input) (models.StepOutput, error) {
	step := in.Step

	if step.ModelID != "" {
		return h.executeViaModel(ctx, in)
	}
	return h.executeDirect(ctx, in)
}

func (h *ShellStep) executeViaModel(ctx context.Context, in Input) (models.StepOutput, error) {
	step := in.Step
	instructions := step.Instructions
	if in.PreviousContext != "" {
		instructions = in.PreviousContext + "\n\n" + instructions
	}

	tools := []map[string]any{{"type": "shell"}}

	req := llm.Build(llm.RequestParams{
		Model:        step.ModelID,
		Instructions: instructions,
		Input:        instructions,
		Tools:        tools,
		ToolChoice:   string(step.ToolChoice),
	})

	outputText, _, _, _, err := h.deps.Provider.Call(ctx, req)
	if err != nil {
		return models.StepOutput{}, fmt.Errorf("handler: shell step %q: %w", step.Name, err)
	}

	return models.StepOutput{
		StepName:  step.Name,
		StepIndex: in.StepIndex,
		Output:    outputText,
		Extras:    map[string]any{"success": true},
	}, nil
}

func (h *ShellStep) executeDirect(ctx context.Context, in Input) (models.StepOutput, error) {
	step := in.Step
	commands := parseCommandLines(step.Instructions)
	if len(commands) == 0 {
		return errorOutput(step, in.StepIndex, "shell step has no model_id and no runnable instructions"), nil
	}

	output, err := h.deps.Shell.RunBatch(ctx, in.JobID, commands, in.StepIndex == 0)
	if err != nil {
		return errorOutput(step, in.StepIndex, fmt.Sprintf("shell: %v", err)), nil
	}

	return models.StepOutput{
		StepName:  step.Name,
		StepIndex: in.StepIndex,
		Output:    output,
		Extras:    map[string]any{"success": true},
	}, nil
}

// parseCommandLines treats each non-blank, non-comment instruction line
// as one shell command.
func parseCommandLines(instructions string) []string {
	var out []string
	for _, line := range strings.Split(instructions, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
