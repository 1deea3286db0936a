package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/statustui"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Watches a running job's step-by-step progress in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	traceStore := newTraceStore(a.objects, a.records)
	jobID := args[0]

	// The interactive spinner view only makes sense attached to a real
	// terminal; piped/redirected output (CI logs, a cron wrapper) falls
	// back to plain line-by-line status polling instead.
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return pollJobPlain(c.Context(), a, jobID)
	}

	model := statustui.New(a.records, traceStore, jobID)
	program := tea.NewProgram(model, tea.WithContext(c.Context()))
	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if m, ok := finalModel.(statustui.Model); ok {
		if err := m.Err(); err != nil {
			return err
		}
	}
	return nil
}

func pollJobPlain(ctx context.Context, a *app, jobID string) error {
	for {
		job, err := a.records.GetJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("status: load job %s: %w", jobID, err)
		}
		fmt.Printf("job %s: %s\n", jobID, job.Status)
		if job.Status == models.JobCompleted || job.Status == models.JobFailed {
			if job.Status == models.JobFailed {
				return fmt.Errorf("job failed: %s", job.ErrorMessage)
			}
			fmt.Printf("output: %s\n", job.OutputURL)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
