package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

func TestAIGenerationStoresOutputAndImages(t *testing.T) {
	artifacts := &fakeArtifactStore{}
	provider := &fakeModelCaller{outputText: "generated copy", imageURLs: []string{"https://example.com/a.png"}}
	h := &AIGeneration{deps: Deps{Artifacts: artifacts, Provider: provider}}

	out, err := h.Execute(context.Background(), Input{
		Step:      models.Step{Name: "draft", ModelID: "gpt-5"},
		StepIndex: 0,
		TenantID:  "tenant-1",
		JobID:     "job-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Output != "generated copy" {
		t.Errorf("unexpected output: %q", out.Output)
	}
	if out.ArtifactID == "" {
		t.Error("expected an artifact id to be recorded")
	}
	if len(out.ImageArtifactIDs) != 1 {
		t.Errorf("expected one image artifact, got %d", len(out.ImageArtifactIDs))
	}
}

func TestAIGenerationSkipsImageOnDownloadFailure(t *testing.T) {
	artifacts := &fakeArtifactStore{imageStoreErr: errors.New("no downloader configured")}
	provider := &fakeModelCaller{outputText: "copy", imageURLs: []string{"https://example.com/a.png"}}
	h := &AIGeneration{deps: Deps{Artifacts: artifacts, Provider: provider}}

	out, err := h.Execute(context.Background(), Input{
		Step:      models.Step{Name: "draft", ModelID: "gpt-5"},
		StepIndex: 0,
		TenantID:  "tenant-1",
		JobID:     "job-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.ImageArtifactIDs) != 0 {
		t.Errorf("expected no image artifacts recorded, got %v", out.ImageArtifactIDs)
	}
}

func TestAIGenerationRecordsUsageAndSafetyChecks(t *testing.T) {
	artifacts := &fakeArtifactStore{}
	provider := &fakeModelCaller{
		outputText:   "copy",
		safetyChecks: []models.SafetyCheck{{ID: "check_1", Code: "malicious_instructions"}},
		usage:        models.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
	}
	usage := &fakeUsageRecorder{}
	h := &AIGeneration{deps: Deps{Artifacts: artifacts, Provider: provider, Usage: usage}}

	out, err := h.Execute(context.Background(), Input{
		Step:      models.Step{Name: "draft", ModelID: "gpt-5"},
		StepIndex: 0,
		TenantID:  "tenant-1",
		JobID:     "job-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.AcknowledgedSafetyChecks) != 1 || out.AcknowledgedSafetyChecks[0].ID != "check_1" {
		t.Errorf("expected the pending safety check to be carried onto the output, got %v", out.AcknowledgedSafetyChecks)
	}
	if len(usage.records) != 1 {
		t.Fatalf("expected one usage record, got %d", len(usage.records))
	}
	if usage.records[0].InputTokens != 10 || usage.records[0].OutputTokens != 20 {
		t.Errorf("unexpected usage record: %+v", usage.records[0])
	}
	if usage.records[0].TenantID != "tenant-1" || usage.records[0].JobID != "job-1" {
		t.Errorf("unexpected usage record identity: %+v", usage.records[0])
	}
}
