package wiring

import "github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/tmpl"

// Templater adapts package-level tmpl.Render to handler.TemplateRenderer.
type Templater struct{}

func (Templater) Render(template string, context map[string]any) (string, error) {
	return tmpl.Render(template, context)
}
