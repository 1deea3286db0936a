package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

func TestS3UploadParsesBucketFromInstructions(t *testing.T) {
	objects := &fakeObjectPutter{existing: map[string]bool{}}
	h := &S3Upload{deps: Deps{Objects: objects, Config: Config{S3AllowedBuckets: []string{"reports-bucket"}}}}

	out, err := h.Execute(context.Background(), Input{
		Step:            models.Step{Name: "archive", Instructions: "Upload to s3://reports-bucket/final.txt"},
		StepIndex:       3,
		JobID:           "job-1",
		TenantID:        "tenant-1",
		PreviousContext: "report body",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != true {
		t.Fatalf("expected success, got %v", out.Extras)
	}
	if out.Extras["bucket"] != "reports-bucket" {
		t.Errorf("expected bucket reports-bucket, got %v", out.Extras["bucket"])
	}
	if len(objects.puts) != 1 {
		t.Fatalf("expected exactly one put, got %d", len(objects.puts))
	}
	if !strings.HasPrefix(objects.puts[0], "tenant-1/jobs/job-1/") {
		t.Errorf("expected key under tenant/job prefix, got %q", objects.puts[0])
	}
}

func TestS3UploadRejectsPlaceholderBucketName(t *testing.T) {
	objects := &fakeObjectPutter{}
	h := &S3Upload{deps: Deps{Objects: objects}}

	out, err := h.Execute(context.Background(), Input{
		Step: models.Step{Name: "archive", Instructions: "Upload to s3://my-bucket/out.txt"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != false {
		t.Fatalf("expected placeholder bucket name to be rejected, got %v", out.Extras)
	}
	if len(objects.puts) != 0 {
		t.Error("expected no upload attempt for placeholder bucket")
	}
}

func TestS3UploadResolvesSourceByGlobPattern(t *testing.T) {
	objects := &fakeObjectPutter{}
	h := &S3Upload{deps: Deps{Objects: objects}}

	out, err := h.Execute(context.Background(), Input{
		Step: models.Step{
			Name:         "archive",
			Instructions: "Upload to s3://reports-bucket/final.txt",
			OutputConfig: &models.OutputConfig{SourceType: "file", SourcePath: "draft-*"},
		},
		StepOutputs: []models.StepOutput{
			{StepName: "draft-v2", Output: "matched body"},
			{StepName: "other", Output: "unrelated body"},
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != true {
		t.Fatalf("expected success, got %v", out.Extras)
	}
}

func TestS3UploadAddsSuffixOnKeyCollision(t *testing.T) {
	objects := &fakeObjectPutter{existing: map[string]bool{"tenant-1/jobs/job-1/final.txt": true}}
	h := &S3Upload{deps: Deps{Objects: objects}}

	out, err := h.Execute(context.Background(), Input{
		Step:     models.Step{Name: "archive", Instructions: "Upload to s3://reports-bucket/final.txt"},
		JobID:    "job-1",
		TenantID: "tenant-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Extras["success"] != true {
		t.Fatalf("expected success, got %v", out.Extras)
	}
	key, _ := out.Extras["key"].(string)
	if key == "tenant-1/jobs/job-1/final.txt" {
		t.Error("expected a collision suffix to be appended to the key")
	}
}
