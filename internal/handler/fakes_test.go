package handler

import (
	"context"
	"fmt"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

type fakeArtifactStore struct {
	stored       []models.Artifact
	storeErr     error
	imageStoreErr error
}

func (f *fakeArtifactStore) Store(ctx context.Context, tenantID, jobID, name string, content []byte, contentType string) (*models.Artifact, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	art := models.Artifact{ArtifactID: fmt.Sprintf("artifact-%d", len(f.stored)), TenantID: tenantID, JobID: jobID, Name: name, MIME: contentType, Size: int64(len(content))}
	f.stored = append(f.stored, art)
	return &art, nil
}

func (f *fakeArtifactStore) StoreImageFromURL(ctx context.Context, tenantID, jobID, name, rawURL string, download DownloadFunc) (*models.Artifact, error) {
	if f.imageStoreErr != nil {
		return nil, f.imageStoreErr
	}
	art := models.Artifact{ArtifactID: fmt.Sprintf("image-artifact-%d", len(f.stored)), TenantID: tenantID, JobID: jobID, Name: name, BlobURL: rawURL}
	f.stored = append(f.stored, art)
	return &art, nil
}

type fakeObjectPutter struct {
	existing map[string]bool
	putErr   error
	puts     []string
}

func (f *fakeObjectPutter) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts = append(f.puts, key)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeObjectPutter) HeadExists(ctx context.Context, key string) (bool, error) {
	return f.existing[key], nil
}

func (f *fakeObjectPutter) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type fakeModelCaller struct {
	outputText   string
	imageURLs    []string
	safetyChecks []models.SafetyCheck
	usage        models.Usage
	err          error
	lastReq      map[string]any
}

func (f *fakeModelCaller) Call(ctx context.Context, req map[string]any) (string, []string, []models.SafetyCheck, models.Usage, error) {
	f.lastReq = req
	return f.outputText, f.imageURLs, f.safetyChecks, f.usage, f.err
}

type fakeUsageRecorder struct {
	records []*models.UsageRecord
}

func (f *fakeUsageRecorder) PutUsageRecord(ctx context.Context, rec *models.UsageRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeShellExecer struct {
	output string
	err    error
	lastCommands []string
	lastReset    bool
}

func (f *fakeShellExecer) RunBatch(ctx context.Context, workspaceID string, commands []string, resetWorkspace bool) (string, error) {
	f.lastCommands = commands
	f.lastReset = resetWorkspace
	return f.output, f.err
}

type fakeWebhookSender struct {
	status     int
	respBody   []byte
	durationMs int64
	err        error
	lastMethod string
	lastURL    string
	lastBody   []byte
}

func (f *fakeWebhookSender) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, int64, error) {
	f.lastMethod = method
	f.lastURL = url
	f.lastBody = body
	return f.status, f.respBody, f.durationMs, f.err
}

type fakeWorkflowLookup struct {
	workflows map[string]*models.Workflow
	jobID     string
	status    int
	triggerErr error
	lastPayload map[string]any
}

func (f *fakeWorkflowLookup) GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return f.workflows[workflowID], nil
}

func (f *fakeWorkflowLookup) TriggerJob(ctx context.Context, workflowID, tenantID string, payload map[string]any) (string, int, error) {
	f.lastPayload = payload
	if f.triggerErr != nil {
		return "", 0, f.triggerErr
	}
	return f.jobID, f.status, nil
}

type fakeTemplateRenderer struct {
	rendered string
	err      error
}

func (f *fakeTemplateRenderer) Render(template string, context map[string]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.rendered != "" {
		return f.rendered, nil
	}
	return template, nil
}
