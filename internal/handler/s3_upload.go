package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// S3Upload runs after a step that produced content, per spec §4.8.4:
// resolves an explicit output_config or falls back to a heuristic parse
// of the step's instructions, sanitizes the destination filename, and
// handles key collisions with a random suffix plus one retry on upload
// error.
type S3Upload struct {
	deps Deps
}

var disallowedFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

var placeholderBucketNames = map[string]bool{
	"bucket": true, "my-bucket": true, "example-bucket": true, "your-bucket": true,
}

var s3URLPattern = regexp.MustCompile(`(?i)upload\s+to\s+s3://([a-z0-9.\-]+)(/\S*)?`)
var s3BucketPhrasePattern = regexp.MustCompile(`(?i)to\s+(?:the\s+)?([a-z0-9.\-]+)\s+s3\s+bucket`)

func (h *S3Upload) Execute(ctx context.Context, in Input) (models.StepOutput, error) {
	step := in.Step

	bucket, destPath, sourceContent, contentType, err := h.resolveTarget(in)
	if err != nil {
		return errorOutput(step, in.StepIndex, err.Error()), nil
	}
	if bucket == "" {
		return errorOutput(step, in.StepIndex, "s3_upload: no bucket resolved from output_config or instructions"), nil
	}
	if placeholderBucketNames[strings.ToLower(bucket)] {
		return errorOutput(step, in.StepIndex, fmt.Sprintf("s3_upload: refusing placeholder bucket name %q", bucket)), nil
	}
	if len(h.deps.Config.S3AllowedBuckets) > 0 && !bucketAllowed(h.deps.Config.S3AllowedBuckets, bucket) {
		return errorOutput(step, in.StepIndex, fmt.Sprintf("s3_upload: bucket %q is not allow-listed", bucket)), nil
	}

	key := fmt.Sprintf("%s/jobs/%s/%s", in.TenantID, in.JobID, sanitizeFilename(destPath))

	key, err = h.resolveCollision(ctx, key)
	if err != nil {
		return errorOutput(step, in.StepIndex, err.Error()), nil
	}

	url, err := h.upload(ctx, key, sourceContent, contentType)
	if err != nil {
		// one retry with a fresh random suffix, per spec.
		key = appendRandomSuffix(key)
		url, err = h.upload(ctx, key, sourceContent, contentType)
		if err != nil {
			return errorOutput(step, in.StepIndex, fmt.Sprintf("s3_upload: upload failed after retry: %v", err)), nil
		}
	}

	return models.StepOutput{
		StepName:  step.Name,
		StepIndex: in.StepIndex,
		Output:    url,
		Extras:    map[string]any{"bucket": bucket, "key": key, "success": true},
	}, nil
}

func (h *S3Upload) resolveTarget(in Input) (bucket, destPath string, content []byte, contentType string, err error) {
	step := in.Step
	content = []byte(in.PreviousContext)
	contentType = "text/plain"

	if step.OutputConfig != nil {
		cfg := step.OutputConfig
		if cfg.ContentType != "" {
			contentType = cfg.ContentType
		}
		destPath = cfg.DestinationPath
		if destPath == "" {
			destPath = fmt.Sprintf("step-%d-output", in.StepIndex)
		}
		switch {
		case cfg.SourceType == "text_content" && len(in.StepOutputs) > 0:
			content = []byte(in.StepOutputs[len(in.StepOutputs)-1].Output)
		case cfg.SourceType == "file" && cfg.SourcePath != "":
			if so, ok := findStepOutputByGlob(in.StepOutputs, cfg.SourcePath); ok {
				content = []byte(so.Output)
			}
		}
		// Bucket isn't itself part of OutputConfig; it's carried in
		// DestinationPath as a template or inferred from instructions below.
	}

	bucket = bucketFromInstructions(step.Instructions)
	if destPath == "" {
		destPath = fmt.Sprintf("step-%d-output.txt", in.StepIndex)
	}
	return bucket, destPath, content, contentType, nil
}

// findStepOutputByGlob resolves source_path as a glob pattern matched
// against prior step names, so a manifest step can target "draft-*"
// without knowing the exact step that will produce it.
func findStepOutputByGlob(outputs []models.StepOutput, pattern string) (models.StepOutput, bool) {
	for _, so := range outputs {
		if ok, err := doublestar.Match(pattern, so.StepName); err == nil && ok {
			return so, true
		}
	}
	return models.StepOutput{}, false
}

func bucketFromInstructions(instructions string) string {
	if m := s3URLPattern.FindStringSubmatch(instructions); len(m) > 1 {
		return m[1]
	}
	if m := s3BucketPhrasePattern.FindStringSubmatch(instructions); len(m) > 1 {
		return m[1]
	}
	return ""
}

func bucketAllowed(allowed []string, bucket string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, bucket) {
			return true
		}
	}
	return false
}

func sanitizeFilename(name string) string {
	return disallowedFilenameChars.ReplaceAllString(name, "_")
}

func (h *S3Upload) resolveCollision(ctx context.Context, key string) (string, error) {
	exists, err := h.deps.Objects.HeadExists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("s3_upload: check existing key: %w", err)
	}
	if !exists {
		return key, nil
	}
	return appendRandomSuffix(key), nil
}

func appendRandomSuffix(key string) string {
	suffix := randomHex(4)
	if idx := strings.LastIndex(key, "."); idx > strings.LastIndex(key, "/") {
		return key[:idx] + "-" + suffix + key[idx:]
	}
	return key + "-" + suffix
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (h *S3Upload) upload(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	if _, err := h.deps.Objects.Put(ctx, key, content, contentType); err != nil {
		return "", err
	}
	return h.deps.Objects.PublicURL(key), nil
}
