// Package joberrors defines the engine's error taxonomy and the
// classification used to tag a failed Job. Grounded on the status-code
// switch in the teacher's heal/client.formatAPIError and the severity
// typing in its errors package, generalized from HTTP status codes to the
// six-entry taxonomy the engine reports.
package joberrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// Category distinguishes the broad failure families named in the error
// handling design: validation errors abort before execution, provider
// errors are retried internally before surfacing, delivery/trace failures
// have distinct fatality rules.
type Category string

const (
	CategoryValidation       Category = "validation"
	CategoryProviderTransient Category = "provider_transient"
	CategoryImageDownload    Category = "image_download"
	CategoryToolLoop         Category = "tool_loop"
	CategoryDelivery         Category = "delivery"
	CategoryTracePersistence Category = "trace_persistence"
)

// JobError wraps an underlying error with the classification + category
// used to tag a failed job record.
type JobError struct {
	Classification models.ErrorClassification
	Category       Category
	Message        string
	Err            error
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *JobError) Unwrap() error { return e.Err }

// New builds a JobError.
func New(classification models.ErrorClassification, category Category, message string, cause error) *JobError {
	return &JobError{Classification: classification, Category: category, Message: message, Err: cause}
}

// Validation is a convenience constructor for the most common category:
// malformed DAG, invalid depends_on, missing template, disallowed bucket.
// These abort the job before any step runs.
func Validation(message string) *JobError {
	return New(models.ErrValidation, CategoryValidation, message, nil)
}

// TracePersistence marks a trace write failure as fatal: integrity trumps
// progress, per the engine's propagation policy.
func TracePersistence(cause error) *JobError {
	return New(models.ErrUnknown, CategoryTracePersistence, "execution trace write failed", cause)
}

// HTTPStatusClassification maps an outbound HTTP status code observed
// while calling an HTTP-backed model provider to a classification, in the
// same shape as the teacher's Anthropic-SDK status-code switch.
func HTTPStatusClassification(status int) models.ErrorClassification {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ErrAuthentication
	case status == http.StatusTooManyRequests:
		return models.ErrRateLimit
	case status == http.StatusNotFound:
		return models.ErrModelNotFound
	case status == http.StatusRequestTimeout || status == 529:
		return models.ErrTimeout
	case status >= 500:
		return models.ErrTimeout
	default:
		return models.ErrUnknown
	}
}

// statusCoder is implemented by provider adapter errors (e.g.
// openairesponses.StatusError) that carry the originating HTTP status
// code without depending on this package.
type statusCoder interface {
	StatusCode() int
}

// Classify inspects an arbitrary error and returns a best-effort
// classification: an already-classified *JobError wins, then any error
// exposing a StatusCode() int is mapped via HTTPStatusClassification,
// else the error is unknown.
func Classify(err error) models.ErrorClassification {
	if err == nil {
		return ""
	}
	var je *JobError
	if errors.As(err, &je) {
		return je.Classification
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return HTTPStatusClassification(sc.StatusCode())
	}
	return models.ErrUnknown
}
