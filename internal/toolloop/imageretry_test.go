package toolloop

import (
	"context"
	"fmt"
	"testing"
)

type scriptedProvider struct {
	calls     int
	responses []map[string]any
	errs      []error
}

func (p *scriptedProvider) CreateResponse(ctx context.Context, req map[string]any) (map[string]any, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.responses[i], nil
}

func TestImageRetrySubstitutesBase64OnDownloadFailure(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{
			fmt.Errorf("Error while downloading https://example.com/broken.png: connection reset"),
			nil,
		},
		responses: []map[string]any{
			nil,
			{"output_text": "ok", "output": []any{}},
		},
	}
	retry := &ImageRetry{
		Provider: provider,
		Download: func(ctx context.Context, url string) (string, error) {
			return "data:image/png;base64,aGVsbG8=", nil
		},
	}

	input := []map[string]any{
		{"role": "user", "content": []map[string]any{
			{"type": "input_image", "image_url": "https://example.com/broken.png"},
		}},
	}
	resp, err := retry.Run(context.Background(), map[string]any{"model": "gpt-4.1", "input": input})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.OutputText != "ok" {
		t.Errorf("unexpected output: %q", resp.OutputText)
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 calls, got %d", provider.calls)
	}
}

func TestImageRetryTerminatesOnNonImageError(t *testing.T) {
	provider := &scriptedProvider{errs: []error{fmt.Errorf("rate limit exceeded")}}
	retry := &ImageRetry{Provider: provider}

	_, err := retry.Run(context.Background(), map[string]any{"model": "gpt-4.1", "input": "hi"})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if provider.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", provider.calls)
	}
}

func TestImageRetryRemovesImageWhenDownloadUnavailable(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{
			fmt.Errorf("failed downloading https://example.com/a.png"),
			nil,
		},
		responses: []map[string]any{
			nil,
			{"output_text": "done", "output": []any{}},
		},
	}
	retry := &ImageRetry{Provider: provider}

	input := []map[string]any{
		{"role": "user", "content": []map[string]any{
			{"type": "input_text", "text": "look"},
			{"type": "input_image", "image_url": "https://example.com/a.png"},
		}},
	}
	resp, err := retry.Run(context.Background(), map[string]any{"model": "gpt-4.1", "input": input})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.OutputText != "done" {
		t.Errorf("unexpected output: %q", resp.OutputText)
	}
}
