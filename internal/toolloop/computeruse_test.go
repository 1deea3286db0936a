package toolloop

import (
	"context"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

type fakeDriver struct {
	initW, initH int
	actions      []ports.ComputerAction
	screenshot   []byte
	cleanedUp    bool
}

func (d *fakeDriver) Initialize(ctx context.Context, widthPx, heightPx int) error {
	d.initW, d.initH = widthPx, heightPx
	return nil
}
func (d *fakeDriver) ExecuteAction(ctx context.Context, action ports.ComputerAction) error {
	d.actions = append(d.actions, action)
	return nil
}
func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) { return d.screenshot, nil }
func (d *fakeDriver) GetURL(ctx context.Context) (string, error)     { return "", nil }
func (d *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }
func (d *fakeDriver) Cleanup(ctx context.Context) error              { d.cleanedUp = true; return nil }

func TestComputerUseAccumulatesScreenshotURLsAndSafetyChecks(t *testing.T) {
	provider := &scriptedProvider{
		responses: []map[string]any{
			{
				"id": "resp_1",
				"output": []any{
					map[string]any{
						"type":    "computer_call",
						"call_id": "call_1",
						"action":  map[string]any{"type": "click", "coordinate": []any{10, 20}},
						"pending_safety_checks": []any{
							map[string]any{"id": "check_1", "code": "malicious_instructions", "message": "unexpected navigation"},
						},
					},
				},
			},
			{"id": "resp_2", "output_text": "done", "output": []any{}},
		},
	}
	driver := &fakeDriver{screenshot: []byte("png-bytes")}
	uploaded := map[string]string{}
	loop := &ComputerUse{
		Provider: provider,
		Driver:   driver,
		UploadScreenshot: func(ctx context.Context, png []byte) (string, error) {
			url := "https://cdn.example.com/screenshot-1.png"
			uploaded[url] = string(png)
			return url, nil
		},
	}

	result := loop.Run(context.Background(), map[string]any{"model": "computer-use-preview", "input": "go to example.com"}, 1024, 768)
	if result.Reason != ReasonCompleted {
		t.Fatalf("expected completed, got %v (err=%v)", result.Reason, result.Err)
	}
	if len(result.ImageURLs) != 1 || result.ImageURLs[0] != "https://cdn.example.com/screenshot-1.png" {
		t.Errorf("expected the uploaded screenshot URL to be carried on the result, got %v", result.ImageURLs)
	}
	if _, ok := uploaded["https://cdn.example.com/screenshot-1.png"]; !ok {
		t.Error("expected the screenshot to actually be uploaded")
	}
	if len(result.SafetyChecks) != 1 || result.SafetyChecks[0].ID != "check_1" {
		t.Errorf("expected the pending safety check to be recorded, got %v", result.SafetyChecks)
	}
	if !driver.cleanedUp {
		t.Error("expected the driver to be cleaned up")
	}
}
