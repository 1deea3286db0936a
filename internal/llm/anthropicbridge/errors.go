package anthropicbridge

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// statusError adapts an *anthropic.Error's status code to the
// StatusCode() int contract internal/joberrors.Classify probes for,
// mirroring the status-code switch in the teacher's formatAPIError
// without duplicating its user-facing message strings.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string    { return fmt.Sprintf("anthropicbridge: %v", e.err) }
func (e *statusError) Unwrap() error    { return e.err }
func (e *statusError) StatusCode() int  { return e.status }

// classifyAndWrap wraps an Anthropic SDK error so its HTTP status
// (when present) survives for internal/joberrors.Classify.
func classifyAndWrap(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &statusError{status: apiErr.StatusCode, err: err}
	}
	return fmt.Errorf("anthropicbridge: request failed: %w", err)
}
