// Package finalize implements the Job Finalizer (C10): once every step
// has executed, it chooses and stores the job's deliverable, appends the
// final-output trace entry, and best-effort delivers/notifies. Grounded
// on `original_source/backend/worker/services/job_completion_service.py`
// for the finalization sequence itself.
package finalize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	ctxbuild "github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/context"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/retry"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/trace"
)

const (
	defaultFinalizeModelID  = "gpt-5"
	defaultDeliveryTimeout  = 180 * time.Second
	defaultDeliveryAttempts = 3
)

// Config carries the finalizer's tunables.
type Config struct {
	FinalizeModelID  string
	DeliveryTimeout  time.Duration
	DeliveryAttempts int
}

func (c Config) resolve() Config {
	if c.FinalizeModelID == "" {
		c.FinalizeModelID = defaultFinalizeModelID
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = defaultDeliveryTimeout
	}
	if c.DeliveryAttempts <= 0 {
		c.DeliveryAttempts = defaultDeliveryAttempts
	}
	return c
}

// Deps bundles the finalizer's collaborators.
type Deps struct {
	Artifacts ArtifactStore
	Provider  ModelCaller
	Webhook   WebhookSender
	SMS       SmsSender
	Notifier  Notifier
	Tracking  TrackingInjector

	Config Config
}

// Finalizer runs the finalization sequence. It implements
// orchestrator.Finalizer.
type Finalizer struct {
	deps  Deps
	trace *trace.Store
}

// New builds a Finalizer.
func New(deps Deps, traceStore *trace.Store) *Finalizer {
	deps.Config = deps.Config.resolve()
	return &Finalizer{deps: deps, trace: traceStore}
}

// Finalize chooses the deliverable, stores it, appends the final-output
// trace entry, updates job.OutputURL/Artifacts, and best-effort delivers
// and notifies. Delivery and notification failures are logged into the
// trace entry's extras-equivalent (the job record) but never returned as
// a fatal error: a job that produced a deliverable is done, even if the
// tenant wasn't successfully pinged about it.
func (f *Finalizer) Finalize(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission) error {
	steps, err := f.trace.Load(ctx, job)
	if err != nil {
		return fmt.Errorf("finalize: load execution trace: %w", err)
	}

	runtime := buildRuntime(workflow.Steps, steps)
	content, kind, contentType, name := f.chooseDeliverable(ctx, workflow, runtime)

	if kind == models.ArtifactHTML {
		content = f.deps.Tracking.Inject(content)
	}

	art, err := f.deps.Artifacts.Store(ctx, job.TenantID, job.JobID, name, []byte(content), contentType)
	if err != nil {
		return fmt.Errorf("finalize: store deliverable: %w", err)
	}

	finalStep := models.ExecutionStep{
		StepName:   "final_output",
		StepOrder:  len(workflow.Steps),
		StepType:   "finalize",
		Output:     content,
		ArtifactID: art.ArtifactID,
		Timestamp:  time.Now(),
		Success:    true,
	}
	if _, err := f.trace.Append(ctx, job, finalStep); err != nil {
		return fmt.Errorf("finalize: append final-output trace entry: %w", err)
	}

	job.OutputURL = art.PublicURL
	job.Artifacts = append(job.Artifacts, art.ArtifactID)

	f.deliver(ctx, job, workflow, submission, art)
	f.notify(ctx, job)

	return nil
}

// chooseDeliverable implements the three-way decision in spec §4.10:
// template HTML via a final model call over the accumulated context,
// else the last deliverable-tagged step's markdown output, else a
// key:value dump of every step's output.
func (f *Finalizer) chooseDeliverable(ctx context.Context, workflow *models.Workflow, runtime []models.RuntimeStep) (content string, kind models.ArtifactKind, contentType, name string) {
	deliverableText := ctxbuild.DeliverableContext(runtime)

	if workflow.HTMLEnabled && workflow.TemplateHTML != "" {
		html, err := f.renderTemplateHTML(ctx, workflow, deliverableText)
		if err == nil && html != "" {
			return html, models.ArtifactHTML, "text/html", "final.html"
		}
	}

	if deliverableText != "" {
		return deliverableText, models.ArtifactText, "text/markdown", "final.md"
	}

	return keyValueDump(runtime), models.ArtifactText, "text/plain", "final.txt"
}

func (f *Finalizer) renderTemplateHTML(ctx context.Context, workflow *models.Workflow, deliverableText string) (string, error) {
	instructions := "Merge the following content into the HTML template, replacing placeholders " +
		"and producing a single complete, valid HTML document.\n\nTemplate:\n" + workflow.TemplateHTML +
		"\n\nContent:\n" + deliverableText

	req := llm.Build(llm.RequestParams{
		Model:        f.deps.Config.FinalizeModelID,
		Instructions: instructions,
		Input:        instructions,
	})
	outputText, _, _, _, err := f.deps.Provider.Call(ctx, req)
	return outputText, err
}

// keyValueDump is the last-resort deliverable: every step's name and
// output, in step_order order.
func keyValueDump(runtime []models.RuntimeStep) string {
	sorted := append([]models.RuntimeStep{}, runtime...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StepOrder < sorted[j].StepOrder })

	var b strings.Builder
	for _, s := range sorted {
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Output)
	}
	return b.String()
}

func buildRuntime(steps []models.Step, trace []models.ExecutionStep) []models.RuntimeStep {
	byName := make(map[string]models.ExecutionStep, len(trace))
	for _, es := range trace {
		byName[es.StepName] = es
	}
	runtime := make([]models.RuntimeStep, len(steps))
	for i, s := range steps {
		runtime[i] = models.RuntimeStep{Step: s, Index: i}
		if es, ok := byName[s.Name]; ok {
			runtime[i].Output = es.Output
			runtime[i].ImageURLs = es.ImageURLs
		}
	}
	return runtime
}

// deliver notifies the tenant per workflow.DeliveryConfig. All failures
// are swallowed: a finalized job is already complete, and delivery is a
// best-effort courtesy on top of it.
func (f *Finalizer) deliver(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission, art *models.Artifact) {
	switch workflow.DeliveryConfig.Kind {
	case models.DeliveryWebhook:
		f.deliverWebhook(ctx, job, workflow, art)
	case models.DeliverySMS:
		f.deliverSMS(ctx, job, workflow, submission, art)
	case models.DeliveryNone:
	}
}

func (f *Finalizer) deliverWebhook(ctx context.Context, job *models.Job, workflow *models.Workflow, art *models.Artifact) {
	if f.deps.Webhook == nil || workflow.DeliveryConfig.WebhookURL == "" {
		return
	}
	deliverCtx, cancel := context.WithTimeout(ctx, f.deps.Config.DeliveryTimeout)
	defer cancel()

	payload := fmt.Sprintf(`{"job_id":%q,"tenant_id":%q,"status":"completed","output_url":%q,"artifact_id":%q}`,
		job.JobID, job.TenantID, art.PublicURL, art.ArtifactID)

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range workflow.DeliveryConfig.WebhookHeaders {
		headers[k] = v
	}

	err := retry.Do(deliverCtx, func(ctx context.Context) error {
		status, _, _, err := f.deps.Webhook.Send(ctx, "POST", workflow.DeliveryConfig.WebhookURL, headers, []byte(payload))
		if err != nil {
			return err
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("webhook returned status %d", status)
		}
		return nil
	}, retry.WithMaxAttempts(f.deps.Config.DeliveryAttempts), retry.WithInitialDelay(2*time.Second), retry.WithMaxDelay(f.deps.Config.DeliveryTimeout))
	_ = err // best-effort: delivery failure never fails the job
}

func (f *Finalizer) deliverSMS(ctx context.Context, job *models.Job, workflow *models.Workflow, submission *models.Submission, art *models.Artifact) {
	if f.deps.SMS == nil || submission == nil {
		return
	}
	toPhone := submission.SubmissionData[workflow.DeliveryConfig.SMSToField]
	if toPhone == "" {
		return
	}

	deliverCtx, cancel := context.WithTimeout(ctx, f.deps.Config.DeliveryTimeout)
	defer cancel()

	body := fmt.Sprintf("Your result is ready: %s", art.PublicURL)
	if f.deps.Provider != nil {
		instructions := fmt.Sprintf(
			"Write a short SMS (under 140 characters) telling the recipient their "+
				"requested result is ready, with this link: %s", art.PublicURL)
		req := llm.Build(llm.RequestParams{Model: f.deps.Config.FinalizeModelID, Instructions: instructions, Input: instructions})
		if text, _, _, _, err := f.deps.Provider.Call(deliverCtx, req); err == nil && text != "" {
			body = text
		}
	}

	_ = f.deps.SMS.Send(deliverCtx, toPhone, workflow.DeliveryConfig.SMSFromPhone, body) // best-effort
}

func (f *Finalizer) notify(ctx context.Context, job *models.Job) {
	if f.deps.Notifier == nil {
		return
	}
	_ = f.deps.Notifier.PutNotification(ctx, job.TenantID, job.JobID, "job_completed", "Job completed successfully.")
}
