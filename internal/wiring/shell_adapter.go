package wiring

import (
	"context"
	"strings"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// ShellExecerAdapter bridges handler.ShellExecer's line-commands shape to
// ports.ShellRunner's ShellBatch shape, flattening per-command results
// into one summary string the way internal/toolloop's shell loop does.
type ShellExecerAdapter struct {
	Runner          ports.ShellRunner
	TimeoutMs       int64
	MaxOutputLength int
}

func (a *ShellExecerAdapter) RunBatch(ctx context.Context, workspaceID string, commands []string, resetWorkspace bool) (string, error) {
	results, err := a.Runner.Run(ctx, ports.ShellBatch{
		WorkspaceID:     workspaceID,
		Commands:        commands,
		TimeoutMs:       a.TimeoutMs,
		MaxOutputLength: a.MaxOutputLength,
		ResetWorkspace:  resetWorkspace,
	})
	if err != nil {
		return "", err
	}
	return summarize(commands, results), nil
}

func summarize(commands []string, results []ports.ShellCommandResult) string {
	var b strings.Builder
	for i, r := range results {
		if i < len(commands) {
			b.WriteString("$ " + commands[i] + "\n")
		}
		if r.Stdout != "" {
			b.WriteString(r.Stdout)
			if !strings.HasSuffix(r.Stdout, "\n") {
				b.WriteString("\n")
			}
		}
		if r.Stderr != "" {
			b.WriteString(r.Stderr)
			if !strings.HasSuffix(r.Stderr, "\n") {
				b.WriteString("\n")
			}
		}
		if r.Outcome != "" {
			b.WriteString("[" + r.Outcome + "]\n")
		}
	}
	return b.String()
}
