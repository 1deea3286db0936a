package finalize

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/trace"
)

type fakeArtifactStore struct {
	stored []models.Artifact
}

func (f *fakeArtifactStore) Store(ctx context.Context, tenantID, jobID, name string, content []byte, contentType string) (*models.Artifact, error) {
	art := models.Artifact{ArtifactID: "artifact-" + name, TenantID: tenantID, JobID: jobID, Name: name, PublicURL: "https://cdn.example/" + name, MIME: contentType}
	f.stored = append(f.stored, art)
	return &art, nil
}

type fakeModelCaller struct {
	outputText string
	err        error
	calls      int
}

func (f *fakeModelCaller) Call(ctx context.Context, req map[string]any) (string, []string, []models.SafetyCheck, models.Usage, error) {
	f.calls++
	return f.outputText, nil, nil, models.Usage{}, f.err
}

type fakeWebhookSender struct {
	status  int
	err     error
	lastURL string
	calls   int
}

func (f *fakeWebhookSender) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, int64, error) {
	f.calls++
	f.lastURL = url
	if f.err != nil {
		return 0, nil, 0, f.err
	}
	return f.status, nil, 0, nil
}

type fakeSmsSender struct {
	lastTo, lastBody string
}

func (f *fakeSmsSender) Send(ctx context.Context, toPhone, fromPhone, body string) error {
	f.lastTo, f.lastBody = toPhone, body
	return nil
}

type fakeNotifier struct {
	notified bool
}

func (f *fakeNotifier) PutNotification(ctx context.Context, tenantID, jobID, kind, message string) error {
	f.notified = true
	return nil
}

type fakeTrackingInjector struct{}

func (fakeTrackingInjector) Inject(html string) string { return html + "<!--tracking-->" }

type fakeRecords struct{}

func (fakeRecords) GetJob(ctx context.Context, jobID string) (*models.Job, error) { return nil, nil }
func (fakeRecords) PutJob(ctx context.Context, job *models.Job) error             { return nil }
func (fakeRecords) GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return nil, nil
}
func (fakeRecords) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	return nil, nil
}
func (fakeRecords) PutArtifact(ctx context.Context, artifact *models.Artifact) error { return nil }
func (fakeRecords) GetArtifact(ctx context.Context, artifactID string) (*models.Artifact, error) {
	return nil, nil
}
func (fakeRecords) PutUsageRecord(ctx context.Context, rec *models.UsageRecord) error { return nil }
func (fakeRecords) PutNotification(ctx context.Context, tenantID, jobID, kind, message string) error {
	return nil
}

type fakeObjects struct {
	data map[string][]byte
}

func newFakeObjects() *fakeObjects { return &fakeObjects{data: map[string][]byte{}} }

func (f *fakeObjects) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	f.data[key] = content
	return "https://cdn.example/" + key, nil
}
func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) { return f.data[key], nil }
func (f *fakeObjects) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}
func (f *fakeObjects) PublicURL(key string) string { return "https://cdn.example/" + key }

var _ ports.ObjectStore = (*fakeObjects)(nil)
var _ ports.RecordStore = fakeRecords{}

func newTraceStore() *trace.Store {
	return trace.New(newFakeObjects(), fakeRecords{})
}

func baseWorkflow() *models.Workflow {
	return &models.Workflow{
		WorkflowID: "wf-1",
		Steps: []models.Step{
			{Name: "draft", StepOrder: 0, IsDeliverable: true},
		},
	}
}

func baseJob() *models.Job {
	return &models.Job{JobID: "job-1", TenantID: "tenant-1", WorkflowID: "wf-1"}
}

func seedTrace(t *testing.T, ts *trace.Store, job *models.Job, output string) {
	t.Helper()
	if _, err := ts.Append(context.Background(), job, models.ExecutionStep{StepName: "draft", StepOrder: 0, Output: output, Success: true}); err != nil {
		t.Fatalf("seed trace: %v", err)
	}
}

func TestFinalizeUsesLastStepOutputWhenNoTemplate(t *testing.T) {
	ts := newTraceStore()
	job := baseJob()
	seedTrace(t, ts, job, "the report body")

	artifacts := &fakeArtifactStore{}
	f := New(Deps{
		Artifacts: artifacts,
		Tracking:  fakeTrackingInjector{},
	}, ts)

	if err := f.Finalize(context.Background(), job, baseWorkflow(), nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(artifacts.stored) != 1 {
		t.Fatalf("expected one stored artifact, got %d", len(artifacts.stored))
	}
	if !strings.Contains(artifacts.stored[0].Name, "final.md") {
		t.Errorf("expected markdown deliverable, got name %q", artifacts.stored[0].Name)
	}
	if job.OutputURL == "" {
		t.Error("expected job.OutputURL to be set")
	}
	if len(job.Artifacts) != 1 {
		t.Errorf("expected job.Artifacts to record the final artifact, got %v", job.Artifacts)
	}

	steps, err := ts.Load(context.Background(), job)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(steps) != 2 || steps[1].StepName != "final_output" {
		t.Fatalf("expected a final_output trace entry appended, got %+v", steps)
	}
}

func TestFinalizeRendersHTMLTemplateAndInjectsTracking(t *testing.T) {
	ts := newTraceStore()
	job := baseJob()
	seedTrace(t, ts, job, "the report body")

	workflow := baseWorkflow()
	workflow.HTMLEnabled = true
	workflow.TemplateHTML = "<html>{{content}}</html>"

	artifacts := &fakeArtifactStore{}
	provider := &fakeModelCaller{outputText: "<html>rendered</html>"}
	f := New(Deps{
		Artifacts: artifacts,
		Provider:  provider,
		Tracking:  fakeTrackingInjector{},
	}, ts)

	if err := f.Finalize(context.Background(), job, workflow, nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if provider.calls == 0 {
		t.Error("expected the model provider to be called to render the template")
	}
	if artifacts.stored[0].Name != "final.html" {
		t.Errorf("expected final.html artifact, got %q", artifacts.stored[0].Name)
	}
	if artifacts.stored[0].MIME != "text/html" {
		t.Errorf("expected text/html content type, got %q", artifacts.stored[0].MIME)
	}
}

func TestFinalizeFallsBackToKeyValueDumpWhenNoDeliverableStep(t *testing.T) {
	ts := newTraceStore()
	job := baseJob()

	workflow := &models.Workflow{WorkflowID: "wf-1", Steps: []models.Step{{Name: "research", StepOrder: 0}}}
	if _, err := ts.Append(context.Background(), job, models.ExecutionStep{StepName: "research", StepOrder: 0, Output: "", Success: true}); err != nil {
		t.Fatalf("seed trace: %v", err)
	}

	artifacts := &fakeArtifactStore{}
	f := New(Deps{Artifacts: artifacts, Tracking: fakeTrackingInjector{}}, ts)

	if err := f.Finalize(context.Background(), job, workflow, nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if artifacts.stored[0].Name != "final.txt" {
		t.Errorf("expected final.txt fallback artifact, got %q", artifacts.stored[0].Name)
	}
}

func TestFinalizeDeliversWebhookAndNeverFailsOnDeliveryError(t *testing.T) {
	ts := newTraceStore()
	job := baseJob()
	seedTrace(t, ts, job, "the report body")

	workflow := baseWorkflow()
	workflow.DeliveryConfig = models.DeliveryConfig{Kind: models.DeliveryWebhook, WebhookURL: "https://tenant.example/hook"}

	webhook := &fakeWebhookSender{err: context.DeadlineExceeded}
	notifier := &fakeNotifier{}
	f := New(Deps{
		Artifacts: &fakeArtifactStore{},
		Webhook:   webhook,
		Notifier:  notifier,
		Tracking:  fakeTrackingInjector{},
		Config:    Config{DeliveryAttempts: 1},
	}, ts)

	if err := f.Finalize(context.Background(), job, workflow, nil); err != nil {
		t.Fatalf("Finalize must not fail on delivery error, got: %v", err)
	}
	if webhook.calls == 0 {
		t.Error("expected webhook delivery to be attempted")
	}
	if !notifier.notified {
		t.Error("expected in-app notification regardless of delivery outcome")
	}
}

func TestFinalizeDeliversSmsWithModelRenderedCopy(t *testing.T) {
	ts := newTraceStore()
	job := baseJob()
	seedTrace(t, ts, job, "the report body")

	workflow := baseWorkflow()
	workflow.DeliveryConfig = models.DeliveryConfig{Kind: models.DeliverySMS, SMSToField: "phone", SMSFromPhone: "+10000000000"}

	submission := &models.Submission{SubmissionData: map[string]string{"phone": "+15551234567"}}
	sms := &fakeSmsSender{}
	provider := &fakeModelCaller{outputText: "Your result is ready!"}

	f := New(Deps{
		Artifacts: &fakeArtifactStore{},
		Provider:  provider,
		SMS:       sms,
		Tracking:  fakeTrackingInjector{},
	}, ts)

	if err := f.Finalize(context.Background(), job, workflow, submission); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if sms.lastTo != "+15551234567" {
		t.Errorf("expected sms sent to submission phone, got %q", sms.lastTo)
	}
	if sms.lastBody != "Your result is ready!" {
		t.Errorf("expected model-rendered sms body, got %q", sms.lastBody)
	}
}
