package webhookadapters

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestIsSlackTargetMatchesHostOrExplicitType(t *testing.T) {
	if !IsSlackTarget("", "https://hooks.slack.com/services/T/B/x") {
		t.Error("expected slack hostname to be detected")
	}
	if !IsSlackTarget("slack", "https://example.com/webhook") {
		t.Error("expected explicit webhook_type=slack to be detected")
	}
	if IsSlackTarget("", "https://example.com/webhook") {
		t.Error("expected a plain URL to not be treated as slack")
	}
}

func TestBuildSlackPayloadChunksLongOutput(t *testing.T) {
	long := strings.Repeat("x", slackBlockTextLimit+500)
	raw, err := BuildSlackPayload("step done", long, nil)
	if err != nil {
		t.Fatalf("BuildSlackPayload: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	blocks, _ := body["blocks"].([]any)
	if len(blocks) < 3 {
		t.Errorf("expected the long output to be split across multiple blocks, got %d", len(blocks))
	}
}

func TestBuildSlackPayloadIncludesImageLinks(t *testing.T) {
	raw, err := BuildSlackPayload("step done", "short output", []string{"https://example.com/a.png"})
	if err != nil {
		t.Fatalf("BuildSlackPayload: %v", err)
	}
	if !strings.Contains(string(raw), "example.com/a.png") {
		t.Errorf("expected image URL in payload, got %s", raw)
	}
}
