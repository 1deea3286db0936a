// Package orchestrator implements the Workflow Orchestrator (C9): it
// drives a job's steps to completion in two modes (the full batch run and
// a single-step rerun), executing each DAG execution group with bounded
// concurrency and a barrier between groups, grounded on the teacher's
// `packages/core/workflow/injector.go` use of `golang.org/x/sync/errgroup`
// for bounded concurrent file processing (`errgroup.Group.SetLimit`).
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	ctxbuild "github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/context"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/dag"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/handler"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/jobctx"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/joberrors"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/trace"
)

const (
	defaultStepTimeout        = 5 * time.Minute
	defaultJobTimeout         = 30 * time.Minute
	defaultGroupConcurrency   = 8
)

// Finalizer runs the job-completion sequence (C10) once every step has
// executed. The orchestrator depends only on this narrow interface so it
// never needs to import internal/finalize directly.
type Finalizer interface {
	Finalize(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission) error
}

// Config carries the orchestrator's tunables.
type Config struct {
	StepTimeout       time.Duration
	JobTimeout        time.Duration
	GroupConcurrency  int
}

func (c Config) resolve() Config {
	if c.StepTimeout <= 0 {
		c.StepTimeout = defaultStepTimeout
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}
	if c.GroupConcurrency <= 0 {
		c.GroupConcurrency = defaultGroupConcurrency
	}
	return c
}

// Orchestrator drives jobs to completion.
type Orchestrator struct {
	Records   ports.RecordStore
	Trace     *trace.Store
	Handlers  *handler.Registry
	Finalizer Finalizer
	Config    Config
}

// New builds an Orchestrator with defaulted config.
func New(records ports.RecordStore, traceStore *trace.Store, handlers *handler.Registry, finalizer Finalizer, cfg Config) *Orchestrator {
	return &Orchestrator{Records: records, Trace: traceStore, Handlers: handlers, Finalizer: finalizer, Config: cfg.resolve()}
}

// ProcessJob runs every step of workflow for job in dependency order,
// per spec §4.9: groups execute as a barrier-separated pipeline, each
// group's steps run with bounded concurrency, continue_on_error lets a
// group proceed despite a failed step, and the job transitions
// pending→processing→completed/failed exactly once.
func (o *Orchestrator) ProcessJob(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, o.Config.JobTimeout)
	defer cancel()

	result, valErrs := dag.Resolve(workflow.Steps)
	if len(valErrs) > 0 {
		return o.failJob(ctx, job, joberrors.Validation(fmt.Sprintf("%d step validation error(s): %s", len(valErrs), valErrs[0].Error())))
	}

	job.Status = models.JobProcessing
	if err := o.Records.PutJob(ctx, job); err != nil {
		return fmt.Errorf("orchestrator: mark job processing: %w", err)
	}

	runtime := make([]models.RuntimeStep, len(workflow.Steps))
	for i, s := range workflow.Steps {
		runtime[i] = models.RuntimeStep{Step: s, Index: i, NormalizedDeps: result.NormalizedDeps[i]}
	}

	var stepOutputs []models.StepOutput
	var jobErr error

	for _, group := range result.ExecutionGroups {
		if jobErr != nil {
			break
		}
		outputs, err := o.runGroup(ctx, job, workflow, submission, runtime, group, stepOutputs)
		stepOutputs = append(stepOutputs, outputs...)
		for _, out := range outputs {
			runtime[out.StepIndex].Output = out.Output
			runtime[out.StepIndex].ImageURLs = out.ImageURLs
		}
		if err != nil {
			jobErr = err
		}
	}

	if jobErr != nil {
		return o.failJob(ctx, job, jobErr)
	}

	if o.Finalizer != nil {
		if err := o.Finalizer.Finalize(ctx, job, workflow, submission); err != nil {
			return o.failJob(ctx, job, fmt.Errorf("finalize: %w", err))
		}
	}

	job.Status = models.JobCompleted
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	return o.Records.PutJob(ctx, job)
}

// runGroup executes every step index in group concurrently (bounded by
// Config.GroupConcurrency), returning the step outputs produced and the
// first non-continue_on_error failure, if any.
func (o *Orchestrator) runGroup(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission, runtime []models.RuntimeStep, group dag.Group, priorOutputs []models.StepOutput) ([]models.StepOutput, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Config.GroupConcurrency)

	outputs := make([]models.StepOutput, len(group.StepIndices))

	for pos, stepIndex := range group.StepIndices {
		pos, stepIndex := pos, stepIndex
		g.Go(func() error {
			out, err := o.runStep(gctx, job, workflow, submission, runtime, stepIndex, priorOutputs)
			outputs[pos] = out
			if err != nil && !runtime[stepIndex].ContinueOnError {
				return err
			}
			return nil
		})
	}

	return outputs, g.Wait()
}

// runStep executes one step: builds previous_context from its resolved
// dependencies, dispatches to the handler registry, appends an
// ExecutionStep to the trace, and persists a best-effort usage record.
func (o *Orchestrator) runStep(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission, runtime []models.RuntimeStep, stepIndex int, priorOutputs []models.StepOutput) (models.StepOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Config.StepTimeout)
	defer cancel()
	ctx = jobctx.With(ctx, job.TenantID, job.JobID)

	step := runtime[stepIndex]
	prevContext := ctxbuild.Build(ctxbuild.ModePerStep, submission, runtime, stepIndex, step.NormalizedDeps)
	prevImages := ctxbuild.PreviousImageURLs(runtime, step.NormalizedDeps)
	deliverable := ctxbuild.DeliverableContext(runtime[:stepIndex])

	start := time.Now()
	out, err := o.Handlers.Dispatch(ctx, handler.Input{
		Step:              step.Step,
		StepIndex:         stepIndex,
		JobID:             job.JobID,
		TenantID:          job.TenantID,
		WorkflowID:        workflow.WorkflowID,
		SubmissionID:      job.SubmissionID,
		Submission:        submission,
		PreviousContext:   prevContext,
		PreviousImageURLs: prevImages,
		StepOutputs:       priorOutputs,
		Deliverable:       deliverable,
	})
	duration := time.Since(start)

	execStep := models.ExecutionStep{
		StepName:   step.Name,
		StepOrder:  step.StepOrder,
		StepType:   string(step.Kind),
		Input:      prevContext,
		Timestamp:  start,
		DurationMs: duration.Milliseconds(),
	}

	if err != nil {
		execStep.Success = false
		execStep.Error = err.Error()
		if _, traceErr := o.Trace.Append(ctx, job, execStep); traceErr != nil {
			return models.StepOutput{}, traceErr
		}
		return models.StepOutput{StepName: step.Name, StepIndex: stepIndex}, err
	}

	execStep.Output = out.Output
	execStep.ImageURLs = out.ImageURLs
	execStep.ArtifactID = out.ArtifactID
	execStep.AcknowledgedSafetyChecks = out.AcknowledgedSafetyChecks
	execStep.Success = true
	if success, ok := out.Extras["success"].(bool); ok {
		execStep.Success = success
		if !success {
			if msg, ok := out.Extras["error"].(string); ok {
				execStep.Error = msg
			}
		}
	}

	if _, traceErr := o.Trace.Append(ctx, job, execStep); traceErr != nil {
		return models.StepOutput{}, traceErr
	}

	if !execStep.Success && !step.ContinueOnError {
		return out, fmt.Errorf("orchestrator: step %q failed: %s", step.Name, execStep.Error)
	}
	return out, nil
}

func (o *Orchestrator) failJob(ctx context.Context, job *models.Job, err error) error {
	job.Status = models.JobFailed
	job.ErrorType = joberrors.Classify(err)
	job.ErrorMessage = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	if putErr := o.Records.PutJob(ctx, job); putErr != nil {
		return fmt.Errorf("orchestrator: job failed (%v) and could not be persisted: %w", err, putErr)
	}
	return err
}

// ProcessStep reruns exactly one step of an already-processed job, per
// spec §4.9's single-step rerun mode: previous_context is derived only
// from the step's dependency outputs already recorded in the trace, and
// only that step's trace entry is replaced.
func (o *Orchestrator) ProcessStep(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission, stepIndex int) (models.StepOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Config.StepTimeout)
	defer cancel()

	if stepIndex < 0 || stepIndex >= len(workflow.Steps) {
		return models.StepOutput{}, fmt.Errorf("orchestrator: step index %d out of range", stepIndex)
	}

	result, valErrs := dag.Resolve(workflow.Steps)
	if len(valErrs) > 0 {
		return models.StepOutput{}, fmt.Errorf("orchestrator: %d step validation error(s): %s", len(valErrs), valErrs[0].Error())
	}

	existing, err := o.Trace.Load(ctx, job)
	if err != nil {
		return models.StepOutput{}, err
	}

	runtime := make([]models.RuntimeStep, len(workflow.Steps))
	for i, s := range workflow.Steps {
		runtime[i] = models.RuntimeStep{Step: s, Index: i, NormalizedDeps: result.NormalizedDeps[i]}
	}
	byName := make(map[string]models.ExecutionStep, len(existing))
	for _, es := range existing {
		byName[es.StepName] = es
	}
	for i := range runtime {
		if es, ok := byName[runtime[i].Name]; ok {
			runtime[i].Output = es.Output
			runtime[i].ImageURLs = es.ImageURLs
		}
	}

	var priorOutputs []models.StepOutput
	for _, d := range sortedDeps(result.NormalizedDeps[stepIndex]) {
		if es, ok := byName[runtime[d].Name]; ok {
			priorOutputs = append(priorOutputs, models.StepOutput{StepName: es.StepName, StepIndex: d, Output: es.Output, ArtifactID: es.ArtifactID, ImageURLs: es.ImageURLs})
		}
	}

	out, err := o.runStep(ctx, job, workflow, submission, runtime, stepIndex, priorOutputs)
	if err != nil {
		return out, err
	}

	if _, rewriteErr := o.Trace.Rewrite(ctx, job, func(steps []models.ExecutionStep) []models.ExecutionStep {
		return replaceStepByName(steps, runtime[stepIndex].Name, steps[len(steps)-1])
	}); rewriteErr != nil {
		return out, rewriteErr
	}

	return out, o.Records.PutJob(ctx, job)
}

func sortedDeps(deps []int) []int {
	out := append([]int{}, deps...)
	sort.Ints(out)
	return out
}

// replaceStepByName drops every prior trace entry for name (a rerun may
// have appended a fresh one as its last element) and keeps only the most
// recent, so a step rerun doesn't pile up duplicate trace rows.
func replaceStepByName(steps []models.ExecutionStep, name string, latest models.ExecutionStep) []models.ExecutionStep {
	out := make([]models.ExecutionStep, 0, len(steps))
	for _, s := range steps[:len(steps)-1] {
		if s.StepName == name {
			continue
		}
		out = append(out, s)
	}
	return append(out, latest)
}
