// Package openairesponses implements ports.ModelProvider as a plain HTTP
// client against a Responses-API-shaped endpoint, grounded on the
// engine's own internal/httpclient (itself grounded on
// Azure-containerization-assist's retryablehttp usage) rather than a
// bespoke SDK — no openai-go (or similar) client appears anywhere in the
// reference corpus.
package openairesponses

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// Provider calls a Responses-API-compatible HTTP endpoint.
type Provider struct {
	client  ports.HttpClient
	baseURL string
	apiKey  string
}

// New builds a Provider targeting baseURL (e.g.
// "https://api.openai.com/v1/responses") with apiKey sent as a bearer
// token.
func New(client ports.HttpClient, baseURL, apiKey string) *Provider {
	return &Provider{client: client, baseURL: baseURL, apiKey: apiKey}
}

// CreateResponse POSTs req as JSON and decodes the JSON response body
// into a map, matching ports.ModelProvider.
func (p *Provider) CreateResponse(ctx context.Context, req map[string]any) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openairesponses: encode request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
	}

	status, respBody, err := p.client.Do(ctx, "POST", p.baseURL, headers, body)
	if err != nil {
		return nil, fmt.Errorf("openairesponses: request failed: %w", err)
	}
	if status >= 300 {
		return nil, &StatusError{Status: status, Body: string(respBody)}
	}

	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("openairesponses: decode response: %w", err)
	}
	return out, nil
}

// StatusError carries the HTTP status and body of a non-2xx response so
// callers (internal/joberrors.Classify) can map it to an
// ErrorClassification.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openairesponses: status %d: %s", e.Status, e.Body)
}

// StatusCode lets internal/joberrors.Classify map this error to an
// ErrorClassification without importing this package.
func (e *StatusError) StatusCode() int { return e.Status }
