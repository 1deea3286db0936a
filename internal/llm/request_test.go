package llm

import "testing"

func TestBuildPrependsAutonomousPreambleOnce(t *testing.T) {
	req := Build(RequestParams{Model: "gpt-4.1", Instructions: "Write a poem.", Input: "go"})
	instructions, _ := req["instructions"].(string)
	if !contains(instructions, "operating autonomously") {
		t.Fatalf("expected preamble to be prepended, got %q", instructions)
	}
	if !contains(instructions, "Write a poem.") {
		t.Fatalf("expected original instructions preserved, got %q", instructions)
	}

	already := "You are operating autonomously already. Do X."
	req2 := Build(RequestParams{Model: "gpt-4.1", Instructions: already, Input: "go"})
	instructions2, _ := req2["instructions"].(string)
	if instructions2 != already {
		t.Fatalf("expected no duplicate preamble, got %q", instructions2)
	}
}

func TestBuildDeepResearchGuardInsertsFileSearch(t *testing.T) {
	req := Build(RequestParams{Model: "o3-deep-research", Instructions: "research", Input: "go"})
	tools, _ := req["tools"].([]map[string]any)
	if len(tools) != 1 || toolType(tools[0]) != "file_search" {
		t.Fatalf("expected file_search inserted, got %v", tools)
	}
}

func TestBuildDeepResearchGuardSkipsWhenRetrievalToolPresent(t *testing.T) {
	req := Build(RequestParams{
		Model:        "o3-deep-research",
		Instructions: "research",
		Input:        "go",
		Tools:        []map[string]any{{"type": "web_search"}},
	})
	tools, _ := req["tools"].([]map[string]any)
	if len(tools) != 1 {
		t.Fatalf("expected no extra tool inserted, got %v", tools)
	}
}

func TestBuildRemovesCodeInterpreterWhenComputerUsePresent(t *testing.T) {
	req := Build(RequestParams{
		Model:        "gpt-5",
		Instructions: "x",
		Input:        "go",
		Tools: []map[string]any{
			{"type": "code_interpreter"},
			{"type": "computer_use_preview"},
		},
	})
	tools, _ := req["tools"].([]map[string]any)
	for _, tool := range tools {
		if toolType(tool) == "code_interpreter" {
			t.Fatalf("expected code_interpreter removed, got %v", tools)
		}
	}
}

func TestBuildInjectsContainerForCodeInterpreter(t *testing.T) {
	req := Build(RequestParams{
		Model:        "gpt-4.1",
		Instructions: "x",
		Input:        "go",
		Tools:        []map[string]any{{"type": "code_interpreter"}},
	})
	tools, _ := req["tools"].([]map[string]any)
	if tools[0]["container"] == nil {
		t.Fatalf("expected container auto-injected, got %v", tools[0])
	}
}

func TestBuildPreservesExistingContainer(t *testing.T) {
	existing := map[string]any{"type": "preset", "id": "abc"}
	req := Build(RequestParams{
		Model:        "gpt-4.1",
		Instructions: "x",
		Input:        "go",
		Tools:        []map[string]any{{"type": "code_interpreter", "container": existing}},
	})
	tools, _ := req["tools"].([]map[string]any)
	got, _ := tools[0]["container"].(map[string]any)
	if got["id"] != "abc" {
		t.Fatalf("expected existing container preserved, got %v", got)
	}
}

func TestBuildDowngradesRequiredToolChoiceWithNoTools(t *testing.T) {
	req := Build(RequestParams{Model: "gpt-4.1", Instructions: "x", Input: "go", ToolChoice: "required"})
	if req["tool_choice"] != "auto" {
		t.Fatalf("expected tool_choice downgraded to auto, got %v", req["tool_choice"])
	}
	tools, _ := req["tools"].([]map[string]any)
	if len(tools) != 1 || toolType(tools[0]) != "web_search" {
		t.Fatalf("expected default web_search tool inserted, got %v", tools)
	}
}

func TestBuildGPT5FamilyDefaults(t *testing.T) {
	req := Build(RequestParams{Model: "gpt-5-mini", Instructions: "x", Input: "go"})
	reasoning, _ := req["reasoning"].(map[string]any)
	if reasoning["effort"] != "high" {
		t.Fatalf("expected default effort=high, got %v", reasoning)
	}
	if req["service_tier"] != "priority" {
		t.Fatalf("expected default service_tier=priority, got %v", req["service_tier"])
	}
}

func TestBuildGPT5FamilyRespectsOverride(t *testing.T) {
	req := Build(RequestParams{Model: "gpt-5", Instructions: "x", Input: "go", ReasoningEffort: "low"})
	reasoning, _ := req["reasoning"].(map[string]any)
	if reasoning["effort"] != "low" {
		t.Fatalf("expected override preserved, got %v", reasoning)
	}
}

func TestBuildJSONObjectEnsuresJSONMentionedInInstructions(t *testing.T) {
	req := Build(RequestParams{Model: "gpt-4.1", Instructions: "Summarize the page.", Input: "go", TextFormat: "json_object"})
	instructions, _ := req["instructions"].(string)
	if !contains(toLower(instructions), "json") {
		t.Fatalf("expected 'json' mentioned in instructions, got %q", instructions)
	}
}

func TestBuildStripsImageInputsWhenNotSupported(t *testing.T) {
	input := []map[string]any{
		{"role": "user", "content": []map[string]any{
			{"type": "input_text", "text": "hi"},
			{"type": "input_image", "image_url": "https://example.com/a.png"},
		}},
	}
	req := Build(RequestParams{Model: "computer-use-preview", Instructions: "x", Input: input})
	got := req["input"].([]map[string]any)
	content := got[0]["content"].([]map[string]any)
	if len(content) != 1 {
		t.Fatalf("expected image content stripped, got %v", content)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
