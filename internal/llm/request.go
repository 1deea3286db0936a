// Package llm implements the Model Provider Adapter (C5): building
// Responses-API-shaped requests with the engine's safety invariants
// applied, and parsing the resulting output items back into a uniform
// tagged-variant shape. The wire format itself is grounded on the
// `anthropic.MessageNewParams`/content-block handling in the teacher's
// `apps/cli/internal/heal/client/client.go`, generalized from Anthropic's
// request/response shape to the Responses-API shape this spec requires.
package llm

import (
	"strings"
)

// deepResearchModels flags model IDs that imply a deep-research mode,
// which requires at least one retrieval-capable tool.
var deepResearchModelSubstrings = []string{"deep-research", "deep_research"}

// containerRequiringTools get an automatic container when absent.
var containerRequiringTools = map[string]bool{
	"code_interpreter":    true,
	"computer_use_preview": true,
}

const autonomousExecutionPreamble = "You are operating autonomously with no human in the loop. " +
	"Complete the requested task fully using the tools available to you; do not ask clarifying questions."

// BuildRequest assembles a Responses-API request map from the supplied
// fields, applying every invariant from the provider-adapter contract.
// model, instructions, and input are required; tools, toolChoice,
// textFormat, and maxOutputTokens are optional (zero values mean "not
// set" and are omitted from the emitted request).
type RequestParams struct {
	Model            string
	Instructions     string
	Input            any // string or []map[string]any ({role, content[]})
	Tools            []map[string]any
	ToolChoice       string
	ReasoningEffort  string
	ServiceTier      string
	TextFormat       string // json_object | json_schema | text
	JSONSchema       map[string]any
	MaxOutputTokens  int
	Truncation       string
	PreviousResponseID string
	IncludeImages    bool
	HasImageGenTool  bool
}

// Build renders params into the wire request body, applying invariants
// 1-8 from the provider-adapter contract.
func Build(params RequestParams) map[string]any {
	instructions := applyAutonomousPreamble(params.Instructions)

	tools := cloneTools(params.Tools)
	tools = applyDeepResearchGuard(params.Model, tools)
	tools = applyToolCompatibility(tools)
	tools = applyContainerInjection(tools)

	toolChoice, tools := applyToolChoiceSafety(params.ToolChoice, tools)

	req := map[string]any{
		"model":        params.Model,
		"instructions": instructions,
	}

	input := params.Input
	if !params.IncludeImages || !params.HasImageGenTool {
		input = stripImageInputs(input)
	}
	req["input"] = input

	if len(tools) > 0 {
		req["tools"] = tools
	}
	if toolChoice != "" {
		req["tool_choice"] = toolChoice
	}

	effort, tier := reasoningDefaults(params.Model, params.ReasoningEffort, params.ServiceTier)
	if effort != "" {
		req["reasoning"] = map[string]any{"effort": effort}
	}
	if tier != "" {
		req["service_tier"] = tier
	}

	if params.TextFormat != "" {
		format := map[string]any{"type": params.TextFormat}
		if params.TextFormat == "json_schema" && params.JSONSchema != nil {
			format["schema"] = params.JSONSchema
		}
		req["text"] = map[string]any{"format": format}
		if params.TextFormat == "json_object" && !mentionsJSON(instructions) {
			req["instructions"] = instructions + "\n\nRespond with valid json."
		}
	}

	if params.MaxOutputTokens > 0 {
		req["max_output_tokens"] = params.MaxOutputTokens
	}
	if params.Truncation != "" {
		req["truncation"] = params.Truncation
	}
	if params.PreviousResponseID != "" {
		req["previous_response_id"] = params.PreviousResponseID
	}

	return req
}

// applyAutonomousPreamble prepends the autonomous-execution preamble
// unless it (or a close variant) is already present.
func applyAutonomousPreamble(instructions string) string {
	if strings.Contains(instructions, "operating autonomously") {
		return instructions
	}
	if instructions == "" {
		return autonomousExecutionPreamble
	}
	return autonomousExecutionPreamble + "\n\n" + instructions
}

func isDeepResearchModel(model string) bool {
	lower := strings.ToLower(model)
	for _, s := range deepResearchModelSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// applyDeepResearchGuard ensures at least one retrieval tool is present
// when the model implies deep research.
func applyDeepResearchGuard(model string, tools []map[string]any) []map[string]any {
	if !isDeepResearchModel(model) {
		return tools
	}
	for _, t := range tools {
		switch toolType(t) {
		case "web_search", "mcp", "file_search":
			return tools
		}
	}
	return append(tools, map[string]any{"type": "file_search"})
}

// applyToolCompatibility drops code_interpreter when computer_use_preview
// is also present (the two are mutually exclusive in this provider).
func applyToolCompatibility(tools []map[string]any) []map[string]any {
	hasComputerUse := false
	for _, t := range tools {
		if toolType(t) == "computer_use_preview" {
			hasComputerUse = true
			break
		}
	}
	if !hasComputerUse {
		return tools
	}
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		if toolType(t) == "code_interpreter" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// applyContainerInjection adds container:{type:"auto"} to any
// container-requiring tool that doesn't already carry one.
func applyContainerInjection(tools []map[string]any) []map[string]any {
	for _, t := range tools {
		if containerRequiringTools[toolType(t)] {
			if _, ok := t["container"]; !ok {
				t["container"] = map[string]any{"type": "auto"}
			}
		}
	}
	return tools
}

// applyToolChoiceSafety prevents tool_choice="required" with an empty
// tool list by downgrading to "auto" and inserting a default web_search
// tool.
func applyToolChoiceSafety(toolChoice string, tools []map[string]any) (string, []map[string]any) {
	if toolChoice == "required" && len(tools) == 0 {
		return "auto", append(tools, map[string]any{"type": "web_search"})
	}
	return toolChoice, tools
}

// gpt5Family matches model IDs for which reasoning.effort and
// service_tier get engine-chosen defaults absent caller override.
func isGPT5Family(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gpt-5")
}

// reasoningDefaults fills in effort/service_tier defaults for
// GPT-5-family models, preserving any caller-supplied override.
func reasoningDefaults(model, effort, tier string) (string, string) {
	if !isGPT5Family(model) {
		return effort, tier
	}
	if effort == "" {
		effort = "high"
	}
	if tier == "" {
		tier = "priority"
	}
	return effort, tier
}

func mentionsJSON(s string) bool {
	return strings.Contains(strings.ToLower(s), "json")
}

func toolType(t map[string]any) string {
	if v, ok := t["type"].(string); ok {
		return v
	}
	return ""
}

func cloneTools(tools []map[string]any) []map[string]any {
	if tools == nil {
		return nil
	}
	out := make([]map[string]any, len(tools))
	for i, t := range tools {
		clone := make(map[string]any, len(t))
		for k, v := range t {
			clone[k] = v
		}
		out[i] = clone
	}
	return out
}

// stripImageInputs removes input_image content items from a
// []map[string]any input shape, used when the model doesn't support
// image input or no image-generation tool is in play. String inputs
// pass through unchanged.
func stripImageInputs(input any) any {
	messages, ok := input.([]map[string]any)
	if !ok {
		return input
	}
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		content, ok := m["content"].([]map[string]any)
		if !ok {
			out = append(out, m)
			continue
		}
		filtered := make([]map[string]any, 0, len(content))
		for _, c := range content {
			if t, _ := c["type"].(string); t == "input_image" {
				continue
			}
			filtered = append(filtered, c)
		}
		clone := make(map[string]any, len(m))
		for k, v := range m {
			clone[k] = v
		}
		clone["content"] = filtered
		out = append(out, clone)
	}
	return out
}
