package tmpl

import (
	"strings"
	"testing"
)

func TestRenderDottedPath(t *testing.T) {
	ctx := map[string]any{
		"job": map[string]any{"job_id": "j1"},
		"submission_data": map[string]any{"email": "a@b.com"},
	}
	got, err := Render("Job {{job.job_id}} for {{submission_data.email}}", ctx)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if got != "Job j1 for a@b.com" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderMissingPathYieldsEmpty(t *testing.T) {
	got, err := Render("value={{nope.nothing}}", map[string]any{})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if got != "value=" {
		t.Errorf("Render() = %q, want empty substitution", got)
	}
}

func TestRenderJSONWrapsNonJSONAsRawBody(t *testing.T) {
	out, err := RenderJSON("plain text {{job.job_id}}", map[string]any{"job": map[string]any{"job_id": "42"}})
	if err != nil {
		t.Fatalf("RenderJSON error: %v", err)
	}
	if !strings.Contains(string(out), "raw_body") {
		t.Errorf("expected raw_body wrapper, got %s", out)
	}
}
