package modelcall

import (
	"context"
	"testing"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

type fakeProvider struct {
	response map[string]any
}

func (p *fakeProvider) CreateResponse(ctx context.Context, req map[string]any) (map[string]any, error) {
	return p.response, nil
}

func TestCallDefaultsToImageRetryLoop(t *testing.T) {
	provider := &fakeProvider{response: map[string]any{
		"output_text": "hello",
		"output": []any{
			map[string]any{"type": "image", "url": "https://example.com/a.png"},
		},
	}}
	d := &Dispatcher{Provider: provider}

	text, urls, _, _, err := d.Call(context.Background(), map[string]any{"model": "gpt-4.1", "input": "hi"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if text != "hello" {
		t.Errorf("unexpected text: %q", text)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/a.png" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestCallRoutesShellToolsToShellLoop(t *testing.T) {
	provider := &fakeProvider{response: map[string]any{
		"output_text": "shell done",
		"output":      []any{},
	}}
	runner := &fakeRunner{}
	d := &Dispatcher{Provider: provider, Runner: runner, WorkspaceID: "ws-1"}

	req := map[string]any{
		"model": "gpt-4.1",
		"input": "run",
		"tools": []map[string]any{{"type": "shell"}},
	}
	text, _, _, _, err := d.Call(context.Background(), req)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if text != "shell done" {
		t.Errorf("unexpected text: %q", text)
	}
}

type fakeRunner struct{}

func (r *fakeRunner) Run(ctx context.Context, batch ports.ShellBatch) ([]ports.ShellCommandResult, error) {
	return []ports.ShellCommandResult{{Stdout: "ok", Outcome: "ok"}}, nil
}

type fakeComputerDriver struct {
	initW, initH int
}

func (d *fakeComputerDriver) Initialize(ctx context.Context, widthPx, heightPx int) error {
	d.initW, d.initH = widthPx, heightPx
	return nil
}
func (d *fakeComputerDriver) ExecuteAction(ctx context.Context, action ports.ComputerAction) error {
	return nil
}
func (d *fakeComputerDriver) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }
func (d *fakeComputerDriver) GetURL(ctx context.Context) (string, error)     { return "", nil }
func (d *fakeComputerDriver) Navigate(ctx context.Context, url string) error { return nil }
func (d *fakeComputerDriver) Cleanup(ctx context.Context) error              { return nil }

func TestCallRoutesComputerUseAndThreadsImagesAndSafetyChecks(t *testing.T) {
	driver := &fakeComputerDriver{}
	provider := &fakeProvider{response: map[string]any{
		"id":         "resp_1",
		"output_text": "done",
		"output":     []any{},
	}}
	d := &Dispatcher{
		Provider:          provider,
		NewComputerDriver: func() ports.ComputerDriver { return driver },
		UploadScreenshot: func(ctx context.Context, png []byte) (string, error) {
			return "https://cdn.example.com/shot.png", nil
		},
	}

	req := map[string]any{
		"model": "computer-use-preview",
		"input": "drive the browser",
		"tools": []map[string]any{{"type": "computer_use_preview", "display_width": 1280.0, "display_height": 720.0}},
	}
	text, urls, checks, _, err := d.Call(context.Background(), req)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if text != "done" {
		t.Errorf("unexpected text: %q", text)
	}
	if len(urls) != 0 || len(checks) != 0 {
		t.Errorf("expected no screenshots/safety checks when the model never emits a computer_call, got urls=%v checks=%v", urls, checks)
	}
	if driver.initW != 1280 || driver.initH != 720 {
		t.Errorf("expected the declared display dims to be used, got %dx%d", driver.initW, driver.initH)
	}
}

func TestCallDefaultsDisplayDimsWhenToolOmitsThem(t *testing.T) {
	driver := &fakeComputerDriver{}
	provider := &fakeProvider{response: map[string]any{"id": "resp_1", "output_text": "done", "output": []any{}}}
	d := &Dispatcher{
		Provider:          provider,
		NewComputerDriver: func() ports.ComputerDriver { return driver },
	}

	req := map[string]any{
		"model": "computer-use-preview",
		"input": "drive the browser",
		"tools": []map[string]any{{"type": "computer_use_preview"}},
	}
	if _, _, _, _, err := d.Call(context.Background(), req); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if driver.initW != defaultDisplayWidth || driver.initH != defaultDisplayHeight {
		t.Errorf("expected default dims %dx%d, got %dx%d", defaultDisplayWidth, defaultDisplayHeight, driver.initW, driver.initH)
	}
}
