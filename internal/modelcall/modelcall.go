// Package modelcall selects which tool loop (if any) should mediate a
// model call based on the request's tools list, per spec §4.8.1's
// "Invoke C5 (wrapped in C7 tool loops as indicated by the tools list)".
// It is the composition point between internal/llm (request/response
// shapes), internal/toolloop (the three loop implementations), and
// internal/ports.ModelProvider (the concrete backend).
package modelcall

import (
	"context"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/toolloop"
)

// Dispatcher routes a built request to the image-retry wrapper by
// default, or to the computer-use/shell loop when the tools list names
// computer_use_preview/shell respectively.
type Dispatcher struct {
	Provider ports.ModelProvider

	// NewComputerDriver builds a driver for one computer-use step; nil
	// disables computer-use routing (the caller must not advertise the
	// tool without configuring this).
	NewComputerDriver func() ports.ComputerDriver
	UploadScreenshot  func(ctx context.Context, png []byte) (string, error)

	Runner      ports.ShellRunner
	WorkspaceID string

	DownloadImage func(ctx context.Context, url string) (string, error)
}

// Call runs req through the appropriate loop and flattens the result
// into (text, image URLs, safety checks, usage) for handler consumption.
func (d *Dispatcher) Call(ctx context.Context, req map[string]any) (string, []string, []models.SafetyCheck, models.Usage, error) {
	switch {
	case requestHasTool(req, "computer_use_preview") && d.NewComputerDriver != nil:
		loop := &toolloop.ComputerUse{
			Provider:         d.Provider,
			Driver:           d.NewComputerDriver(),
			UploadScreenshot: d.UploadScreenshot,
		}
		width, height := computerUseDisplayDims(req)
		result := loop.Run(ctx, req, width, height)
		if result.Err != nil {
			return "", result.ImageURLs, result.SafetyChecks, models.Usage{}, result.Err
		}
		return result.OutputText, result.ImageURLs, result.SafetyChecks, toModelUsage(result.Usage), nil

	case requestHasTool(req, "shell") && d.Runner != nil:
		loop := &toolloop.Shell{Provider: d.Provider, Runner: d.Runner, WorkspaceID: d.WorkspaceID}
		result := loop.Run(ctx, req)
		if result.Err != nil {
			return "", nil, nil, models.Usage{}, result.Err
		}
		return result.OutputText, nil, nil, toModelUsage(result.Usage), nil

	default:
		retry := &toolloop.ImageRetry{Provider: d.Provider, Download: d.DownloadImage}
		resp, err := retry.Run(ctx, req)
		if err != nil {
			return "", nil, nil, models.Usage{}, err
		}
		return resp.OutputText, resp.ImageURLs(), nil, toModelUsage(resp.Usage), nil
	}
}

const (
	defaultDisplayWidth  = 1024
	defaultDisplayHeight = 768
)

// computerUseDisplayDims reads the width/height the computer_use_preview
// tool declares on the request, falling back to the documented 1024x768
// default when the tool omits them.
func computerUseDisplayDims(req map[string]any) (int, int) {
	tools, ok := req["tools"].([]map[string]any)
	if !ok {
		return defaultDisplayWidth, defaultDisplayHeight
	}
	for _, t := range tools {
		if t["type"] != "computer_use_preview" {
			continue
		}
		width := intField(t, "display_width")
		height := intField(t, "display_height")
		if width <= 0 {
			width = defaultDisplayWidth
		}
		if height <= 0 {
			height = defaultDisplayHeight
		}
		return width, height
	}
	return defaultDisplayWidth, defaultDisplayHeight
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func requestHasTool(req map[string]any, toolType string) bool {
	tools, ok := req["tools"].([]map[string]any)
	if !ok {
		return false
	}
	for _, t := range tools {
		if t["type"] == toolType {
			return true
		}
	}
	return false
}

func toModelUsage(u llm.Usage) models.Usage {
	return models.Usage{
		InputTokens:  int64(u.InputTokens),
		OutputTokens: int64(u.OutputTokens),
		TotalTokens:  int64(u.TotalTokens),
	}
}
