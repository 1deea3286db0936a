package toolloop

import (
	"context"
	"fmt"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

const defaultImageRetryMax = 3

// ImageRetry is a one-shot recovery wrapper around a single model call
// (not a true loop, per spec §4.7.1): on an image-download failure it
// retries by substituting the offending URL with a pre-downloaded base64
// payload, and failing that, by dropping the image and retrying plainly.
// It terminates immediately on any error that doesn't name an image URL.
type ImageRetry struct {
	Provider ports.ModelProvider
	MaxRetries int
	Download func(ctx context.Context, rawURL string) (string, error) // returns a data: URL
}

// Run calls Provider.CreateResponse(req), retrying on image-download
// failures up to MaxRetries times.
func (r *ImageRetry) Run(ctx context.Context, req map[string]any) (*llm.Response, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultImageRetryMax
	}

	attempt := req
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		resp, err := callModel(ctx, r.Provider, attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		url, ok := llm.ParseImageDownloadFailureURL(err.Error())
		if !ok {
			return nil, err
		}

		next, handled := r.recover(ctx, attempt, url)
		if !handled {
			return nil, err
		}
		attempt = next
	}
	return nil, fmt.Errorf("toolloop: image retry exhausted after %d attempts: %w", maxRetries, lastErr)
}

// recover first tries substituting url with a downloaded base64 data
// URL; failing that (or with no Download function configured), it drops
// the offending image entirely and retries plainly.
func (r *ImageRetry) recover(ctx context.Context, req map[string]any, url string) (map[string]any, bool) {
	input, ok := req["input"].([]map[string]any)
	if !ok {
		return nil, false
	}

	if r.Download != nil {
		if dataURL, err := r.Download(ctx, url); err == nil {
			return withClonedInput(req, substituteImageURL(input, url, dataURL)), true
		}
	}
	return withClonedInput(req, removeImageURL(input, url)), true
}

func withClonedInput(req map[string]any, input []map[string]any) map[string]any {
	clone := make(map[string]any, len(req))
	for k, v := range req {
		clone[k] = v
	}
	clone["input"] = input
	return clone
}

func substituteImageURL(input []map[string]any, from, to string) []map[string]any {
	return mapImageContent(input, func(item map[string]any) map[string]any {
		if urlField(item) == from {
			clone := cloneContentItem(item)
			clone["image_url"] = to
			delete(clone, "url")
			return clone
		}
		return item
	})
}

func removeImageURL(input []map[string]any, target string) []map[string]any {
	out := make([]map[string]any, 0, len(input))
	for _, msg := range input {
		content, ok := msg["content"].([]map[string]any)
		if !ok {
			out = append(out, msg)
			continue
		}
		filtered := make([]map[string]any, 0, len(content))
		for _, item := range content {
			if item["type"] == "input_image" && urlField(item) == target {
				continue
			}
			filtered = append(filtered, item)
		}
		clone := cloneContentItem(msg)
		clone["content"] = filtered
		out = append(out, clone)
	}
	return out
}

func mapImageContent(input []map[string]any, fn func(map[string]any) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(input))
	for _, msg := range input {
		content, ok := msg["content"].([]map[string]any)
		if !ok {
			out = append(out, msg)
			continue
		}
		mapped := make([]map[string]any, len(content))
		for i, item := range content {
			if item["type"] == "input_image" {
				mapped[i] = fn(item)
			} else {
				mapped[i] = item
			}
		}
		clone := cloneContentItem(msg)
		clone["content"] = mapped
		out = append(out, clone)
	}
	return out
}

func urlField(item map[string]any) string {
	if v, ok := item["image_url"].(string); ok {
		return v
	}
	if v, ok := item["url"].(string); ok {
		return v
	}
	return ""
}

func cloneContentItem(m map[string]any) map[string]any {
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
