package llm

import (
	"encoding/json"
)

// OutputItemType tags the concrete shape of one output[] entry.
type OutputItemType string

const (
	ItemReasoning          OutputItemType = "reasoning"
	ItemText               OutputItemType = "text"
	ItemImage              OutputItemType = "image"
	ItemImageGenerationCall OutputItemType = "image_generation_call"
	ItemComputerCall       OutputItemType = "computer_call"
	ItemComputerScreenshot OutputItemType = "computer_screenshot"
	ItemShellCall          OutputItemType = "shell_call"
	ItemToolCall           OutputItemType = "tool_call"
	ItemFunctionCall       OutputItemType = "function_call"
	ItemUnknown            OutputItemType = "unknown"
)

// OutputItem is the tagged-variant decoding of one entry in a Responses
// API response's output[] array. Parsing is lenient: unknown "type"
// values decode as ItemUnknown with Raw populated rather than failing
// the whole response, and fields are probed across the legacy/modern
// shape overlap rather than assumed to live at one fixed path.
type OutputItem struct {
	Type OutputItemType

	// Text/reasoning content.
	Text string

	// Image fields — URL or base64-encoded result, whichever the shape carries.
	ImageURL    string
	ImageBase64 string
	ContentType string

	// computer_call / tool_call / function_call fields.
	CallID  string
	Name    string
	Action  map[string]any
	Payload map[string]any
	Arguments string

	// PendingSafetyChecks carries any safety checks a computer_call item
	// requires the caller to acknowledge before the next submit; each
	// entry carries at least an "id" key.
	PendingSafetyChecks []map[string]any

	Raw map[string]any
}

// UnmarshalJSON implements lenient tolerant decoding: it reads "type" to
// pick a variant, then probes several alternative field names per
// variant so that both legacy and modern provider shapes parse.
func (o *OutputItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Raw = raw

	typ, _ := raw["type"].(string)
	o.Type = classify(typ, raw)

	switch o.Type {
	case ItemReasoning, ItemText:
		o.Text = firstString(raw, "text", "content", "output_text", "summary")
	case ItemImage, ItemImageGenerationCall:
		o.ImageURL = firstString(raw, "url", "image_url")
		o.ImageBase64 = firstString(raw, "result", "b64_json", "data", "base64")
		o.ContentType = firstString(raw, "content_type", "mime_type")
		if o.ContentType == "" {
			o.ContentType = "image/png"
		}
	case ItemComputerCall:
		o.CallID = firstString(raw, "call_id", "id")
		if action, ok := raw["action"].(map[string]any); ok {
			o.Action = action
		}
		if checks, ok := raw["pending_safety_checks"].([]any); ok {
			for _, c := range checks {
				if m, ok := c.(map[string]any); ok {
					o.PendingSafetyChecks = append(o.PendingSafetyChecks, m)
				}
			}
		}
	case ItemComputerScreenshot:
		o.ImageURL = firstString(raw, "url", "image_url")
		o.ImageBase64 = firstString(raw, "image_base64", "data", "base64")
	case ItemShellCall:
		o.CallID = firstString(raw, "call_id", "id")
		if payload, ok := raw["action"].(map[string]any); ok {
			o.Payload = payload
		} else if payload, ok := raw["payload"].(map[string]any); ok {
			o.Payload = payload
		}
	case ItemToolCall, ItemFunctionCall:
		o.CallID = firstString(raw, "call_id", "id")
		o.Name = firstString(raw, "name", "tool_name")
		o.Arguments = firstString(raw, "arguments", "input")
		if payload, ok := raw["payload"].(map[string]any); ok {
			o.Payload = payload
		}
	}
	return nil
}

// classify maps a raw "type" string (and, as a fallback, shape probing)
// to an OutputItemType, tolerating unknown/legacy type strings.
func classify(typ string, raw map[string]any) OutputItemType {
	switch typ {
	case "reasoning":
		return ItemReasoning
	case "text", "output_text", "message":
		return ItemText
	case "image":
		return ItemImage
	case "image_generation_call":
		return ItemImageGenerationCall
	case "computer_call":
		return ItemComputerCall
	case "computer_screenshot", "computer_use_screenshot":
		return ItemComputerScreenshot
	case "shell_call", "local_shell_call":
		return ItemShellCall
	case "tool_call":
		return ItemToolCall
	case "function_call":
		return ItemFunctionCall
	}
	// Shape-based fallback for responses that omit "type" or use a
	// provider-specific legacy string.
	if _, ok := raw["action"]; ok {
		if _, ok := raw["call_id"]; ok {
			return ItemComputerCall
		}
	}
	if _, ok := raw["arguments"]; ok {
		return ItemFunctionCall
	}
	return ItemUnknown
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Usage mirrors the Responses API usage object.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is the parsed top-level Responses API response.
type Response struct {
	ID         string       `json:"id"`
	OutputText string       `json:"output_text"`
	Output     []OutputItem `json:"output"`
	Usage      Usage        `json:"usage"`
}

// Parse decodes a raw provider response map into a Response.
func Parse(raw map[string]any) (*Response, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImageURLs harvests every image URL or base64 payload referenced by
// resp.Output, in encounter order, without deduplication (callers apply
// the image pipeline's DedupURLs separately once base64 payloads have
// been uploaded and converted to URLs).
func (r *Response) ImageURLs() []string {
	var urls []string
	for _, item := range r.Output {
		switch item.Type {
		case ItemImage, ItemImageGenerationCall, ItemComputerScreenshot:
			if item.ImageURL != "" {
				urls = append(urls, item.ImageURL)
			}
		}
	}
	return urls
}

// Base64Images returns every output item carrying an inline base64
// image payload instead of a URL, paired with its content type, so
// callers can upload them to object storage and substitute the result.
type Base64Image struct {
	Data        string
	ContentType string
}

func (r *Response) Base64Images() []Base64Image {
	var out []Base64Image
	for _, item := range r.Output {
		if item.ImageURL == "" && item.ImageBase64 != "" {
			out = append(out, Base64Image{Data: item.ImageBase64, ContentType: item.ContentType})
		}
	}
	return out
}

// ComputerCalls returns every computer_call item in encounter order.
func (r *Response) ComputerCalls() []OutputItem {
	var out []OutputItem
	for _, item := range r.Output {
		if item.Type == ItemComputerCall {
			out = append(out, item)
		}
	}
	return out
}

// ShellCalls returns every shell_call item in encounter order.
func (r *Response) ShellCalls() []OutputItem {
	var out []OutputItem
	for _, item := range r.Output {
		if item.Type == ItemShellCall {
			out = append(out, item)
		}
	}
	return out
}
