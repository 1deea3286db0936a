// Package toolloop implements the three tool loops (C7): image-retry,
// computer-use, and shell. All three share one shape — single-threaded
// cooperative cycling between a model call, tool execution, and
// tool-output submission, chained via previous_response_id — grounded on
// the iteration/turn structure of the teacher's heal/loop.HealLoop.Run,
// generalized from Anthropic's tool-use block shape to the Responses
// API's computer_call/shell_call/function_call item shapes.
package toolloop

import (
	"context"
	"time"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// Reason is the terminal condition of a loop run.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonTimeout   Reason = "timeout"
	ReasonError     Reason = "error"
)

// Event is one observable occurrence during a loop run, surfaced for
// streaming/log consumers. Loops emit these best-effort; callers may
// ignore them entirely.
type Event struct {
	Kind    string // "reasoning" | "text" | "action" | "submit" | "error"
	Message string
}

// Result is the outcome of a completed loop run.
type Result struct {
	Reason     Reason
	OutputText string

	// ImageURLs collects every screenshot uploaded during the run, in
	// capture order (computer-use only; other loops leave this nil).
	ImageURLs []string

	// SafetyChecks collects every pending safety check auto-acknowledged
	// during the run, for audit (computer-use only).
	SafetyChecks []models.SafetyCheck

	Usage      llm.Usage
	Iterations int
	Err        error
}

// Config bounds a loop's iteration count and wall-clock budget. Zero
// values fall back to the package defaults (50 iterations / 300s),
// matching the computer-use loop's stated defaults, reused for the shell
// loop absent a more specific spec.
type Config struct {
	MaxIterations int
	Timeout       time.Duration
}

const (
	defaultMaxIterations = 50
	defaultTimeout       = 300 * time.Second
)

func (c Config) resolve() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// callModel issues one CreateResponse call and parses the result into
// the uniform llm.Response shape, regardless of which ModelProvider
// backs it.
func callModel(ctx context.Context, provider ports.ModelProvider, req map[string]any) (*llm.Response, error) {
	raw, err := provider.CreateResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.Parse(raw)
}

// hasOutputItemOfType reports whether resp.Output contains an item of
// the given type.
func hasOutputItemOfType(resp *llm.Response, t llm.OutputItemType) bool {
	for _, item := range resp.Output {
		if item.Type == t {
			return true
		}
	}
	return false
}

func emit(events chan<- Event, kind, message string) {
	if events == nil {
		return
	}
	select {
	case events <- Event{Kind: kind, Message: message}:
	default:
	}
}
