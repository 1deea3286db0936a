package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/logx"
)

var processStepCmd = &cobra.Command{
	Use:   "process-step <job-id> <step-index>",
	Short: "Runs a single step of a job and prints its output, without advancing the job status",
	Args:  cobra.ExactArgs(2),
	RunE:  runProcessStep,
}

func runProcessStep(c *cobra.Command, args []string) error {
	jobID := args[0]
	stepIndex, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("step-index must be an integer: %w", err)
	}

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
	if stepIndex < 0 || stepIndex >= len(workflow.Steps) {
		return fmt.Errorf("step index %d out of range (workflow has %d steps)", stepIndex, len(workflow.Steps))
	}

	log.Info("processing step %d (%s)", stepIndex, workflow.Steps[stepIndex].Name)
	output, err := a.orch.ProcessStep(ctx, job, workflow, submission, stepIndex)
	if err != nil {
		log.Error("step failed: %v", err)
		return err
	}

	log.Info("step finished: %s", output.StepName)
	fmt.Println(output.Output)
	return nil
}
