// Package anthropicbridge implements ports.ModelProvider against the
// Anthropic SDK, translating the engine's Responses-API-shaped request
// map into anthropic.MessageNewParams and translating the SDK response
// back into a Responses-API-shaped output map so downstream code (the
// request builder's invariants and the response processor's tagged
// OutputItem decoding) stays provider-agnostic. Grounded directly on the
// Messages.New call and StopReason handling in the teacher's
// apps/cli/internal/heal/client/client.go and heal/loop/loop.go.
package anthropicbridge

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 8192

// Provider bridges ports.ModelProvider to the Anthropic SDK.
type Provider struct {
	api anthropic.Client
}

// New builds a Provider with apiKey already resolved (e.g. via
// internal/secrets).
func New(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropicbridge: no API key provided")
	}
	return &Provider{
		api: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// CreateResponse translates req (Responses-API shape) into an Anthropic
// Messages.New call and translates the result back into a Responses-API
// shaped map: {id, output_text, output[], usage{...}}.
func (p *Provider) CreateResponse(ctx context.Context, req map[string]any) (map[string]any, error) {
	params, err := buildMessageParams(req)
	if err != nil {
		return nil, fmt.Errorf("anthropicbridge: build request: %w", err)
	}

	msg, err := p.api.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAndWrap(err)
	}

	return translateResponse(msg), nil
}

// buildMessageParams maps {model, instructions, input, max_output_tokens,
// tools} onto anthropic.MessageNewParams. Input is either a plain string
// (becomes a single user text block) or a []map[string]any {role,
// content[]} sequence (becomes one MessageParam per entry, input_text
// content items become text blocks, input_image items become image
// blocks by URL).
func buildMessageParams(req map[string]any) (anthropic.MessageNewParams, error) {
	model, _ := req["model"].(string)
	instructions, _ := req["instructions"].(string)

	maxTokens := int64(defaultMaxTokens)
	if v, ok := req["max_output_tokens"].(int); ok && v > 0 {
		maxTokens = int64(v)
	}

	messages, err := buildMessages(req["input"])
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: instructions}}
	}
	return params, nil
}

func buildMessages(input any) ([]anthropic.MessageParam, error) {
	switch v := input.(type) {
	case string:
		return []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(v)),
		}, nil
	case []map[string]any:
		var out []anthropic.MessageParam
		for _, entry := range v {
			role, _ := entry["role"].(string)
			blocks, err := buildContentBlocks(entry["content"])
			if err != nil {
				return nil, err
			}
			if role == "assistant" {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			} else {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("anthropicbridge: missing input")
	default:
		return nil, fmt.Errorf("anthropicbridge: unsupported input shape %T", input)
	}
}

// buildContentBlocks translates input_text content items into Anthropic
// text blocks. input_image items are intentionally not forwarded here:
// the request builder's image-input invariant (spec §4.5.7) only admits
// images alongside an image-generation tool, a combination this bridge's
// callers route to the native HTTP provider instead (see DESIGN.md).
func buildContentBlocks(content any) ([]anthropic.ContentBlockParamUnion, error) {
	items, ok := content.([]map[string]any)
	if !ok {
		return nil, fmt.Errorf("anthropicbridge: unsupported content shape %T", content)
	}
	var blocks []anthropic.ContentBlockParamUnion
	for _, item := range items {
		if item["type"] == "input_text" {
			text, _ := item["text"].(string)
			blocks = append(blocks, anthropic.NewTextBlock(text))
		}
	}
	return blocks, nil
}

// translateResponse converts an Anthropic Message into the engine's
// Responses-API shaped map, so internal/llm.Parse can decode it with the
// same tagged-variant logic used for the native HTTP provider.
func translateResponse(msg *anthropic.Message) map[string]any {
	var outputText string
	var output []any

	for i := range msg.Content {
		block := msg.Content[i]
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			if outputText == "" {
				outputText = b.Text
			}
			output = append(output, map[string]any{"type": "text", "text": b.Text})
		case anthropic.ToolUseBlock:
			output = append(output, map[string]any{
				"type":      "function_call",
				"call_id":   b.ID,
				"name":      b.Name,
				"arguments": b.JSON.Input.Raw(),
			})
		}
	}

	return map[string]any{
		"id":          msg.ID,
		"output_text": outputText,
		"output":      output,
		"usage": map[string]any{
			"input_tokens":  int(msg.Usage.InputTokens),
			"output_tokens": int(msg.Usage.OutputTokens),
			"total_tokens":  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}
