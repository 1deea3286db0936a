package toolloop

import (
	"context"
	"fmt"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

const defaultShellOutputCap = 4096

// Shell drives the shell tool loop described in spec §4.7.3: detect a
// shell_call/tool_call{name=shell}/function_call{name=shell} item,
// execute it against a ShellRunner bound to a workspace, and submit a
// shell_call_output item, relaxing tool_choice="required" on follow-up
// turns to avoid tool-only livelock.
type Shell struct {
	Provider    ports.ModelProvider
	Runner      ports.ShellRunner
	WorkspaceID string
	Config      Config
	Events      chan<- Event
}

// Run executes the loop. reset is true exactly once per job step (the
// first iteration), matching the "reset exactly once" workspace rule.
func (s *Shell) Run(ctx context.Context, initialReq map[string]any) *Result {
	cfg := s.Config.resolve()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req := initialReq
	var usage llm.Usage
	var previousResponseID string
	resetRequested := true

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return &Result{Reason: ReasonTimeout, Iterations: iteration, Usage: usage}
		default:
		}

		if previousResponseID != "" {
			req = withField(req, "previous_response_id", previousResponseID)
			req = withField(req, "tool_choice", "auto")
		}

		resp, err := callModel(ctx, s.Provider, req)
		if err != nil {
			return &Result{Reason: ReasonError, Iterations: iteration, Usage: usage, Err: err}
		}
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		previousResponseID = resp.ID

		for _, item := range resp.Output {
			if item.Type == llm.ItemReasoning || item.Type == llm.ItemText {
				emit(s.Events, string(item.Type), item.Text)
			}
		}

		call, ok := findShellCall(resp)
		if !ok {
			return &Result{Reason: ReasonCompleted, OutputText: resp.OutputText, Iterations: iteration + 1, Usage: usage}
		}

		batch := extractShellBatch(call, s.WorkspaceID, resetRequested)
		resetRequested = false

		results, runErr := s.Runner.Run(ctx, batch)
		if runErr != nil {
			results = []ports.ShellCommandResult{{Outcome: "error", Stderr: runErr.Error()}}
		}
		emit(s.Events, "submit", summarizeShellResults(results))

		req = buildShellCallOutput(req, call.CallID, batch.MaxOutputLength, results)
	}

	return &Result{Reason: ReasonTimeout, Iterations: cfg.MaxIterations, Usage: usage}
}

func findShellCall(resp *llm.Response) (llm.OutputItem, bool) {
	for _, item := range resp.Output {
		if item.Type == llm.ItemShellCall {
			return item, true
		}
		if (item.Type == llm.ItemToolCall || item.Type == llm.ItemFunctionCall) && item.Name == "shell" {
			return item, true
		}
	}
	return llm.OutputItem{}, false
}

// extractShellBatch pulls {commands, timeout_ms?, max_output_length?}
// out of the call payload, applying the default output cap when unset.
func extractShellBatch(call llm.OutputItem, workspaceID string, reset bool) ports.ShellBatch {
	payload := call.Payload
	if payload == nil {
		payload = call.Action
	}

	var commands []string
	if raw, ok := payload["commands"].([]any); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				commands = append(commands, s)
			}
		}
	}

	maxOutput := defaultShellOutputCap
	if v, ok := payload["max_output_length"].(float64); ok && v > 0 {
		maxOutput = int(v)
	}

	var timeoutMs int64
	if v, ok := payload["timeout_ms"].(float64); ok && v > 0 {
		timeoutMs = int64(v)
	}

	return ports.ShellBatch{
		WorkspaceID:     workspaceID,
		Commands:        commands,
		TimeoutMs:       timeoutMs,
		MaxOutputLength: maxOutput,
		ResetWorkspace:  reset,
	}
}

func summarizeShellResults(results []ports.ShellCommandResult) string {
	out := ""
	for i, r := range results {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("[%s] %s", r.Outcome, r.Stdout)
		if r.Stderr != "" {
			out += "\n[stderr] " + r.Stderr
		}
	}
	return out
}

// buildShellCallOutput submits the per-command results as the array of
// {stdout, stderr, outcome} objects the shell_call_output item shape
// requires, carrying max_output_length through so the provider knows
// what cap was applied.
func buildShellCallOutput(req map[string]any, callID string, maxOutputLength int, results []ports.ShellCommandResult) map[string]any {
	output := make([]map[string]any, len(results))
	for i, r := range results {
		entry := map[string]any{"stdout": r.Stdout, "stderr": r.Stderr}
		if r.Outcome != "" {
			entry["outcome"] = r.Outcome
		}
		output[i] = entry
	}
	item := map[string]any{
		"type":              "shell_call_output",
		"call_id":           callID,
		"max_output_length": maxOutputLength,
		"output":            output,
	}
	clone := make(map[string]any, len(req))
	for k, v := range req {
		clone[k] = v
	}
	clone["input"] = []map[string]any{item}
	return clone
}
