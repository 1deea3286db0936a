package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/logx"
)

var processJobCmd = &cobra.Command{
	Use:   "process-job <job-id>",
	Short: "Runs every remaining step of a job to completion, then finalizes it",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcessJob,
}

func runProcessJob(c *cobra.Command, args []string) error {
	jobID := args[0]
	log := logx.New().With("job_id", jobID)

	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := c.Context()
	job, err := a.records.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	workflow, err := a.records.GetWorkflow(ctx, job.WorkflowID)
	if err != nil {
		return fmt.Errorf("load workflow %s: %w", job.WorkflowID, err)
	}
	submission, err := a.records.GetSubmission(ctx, job.SubmissionID)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", job.SubmissionID, err)
	}

	log.Info("processing job: workflow=%s status=%s", workflow.WorkflowID, job.Status)
	if err := a.orch.ProcessJob(ctx, job, workflow, submission); err != nil {
		log.Error("job failed: %v", err)
		return err
	}

	log.Info("job finished: status=%s output=%s", job.Status, job.OutputURL)
	return nil
}
