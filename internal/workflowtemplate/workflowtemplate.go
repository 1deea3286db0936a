// Package workflowtemplate loads models.Workflow definitions authored as
// local YAML bundles, for seeding the reference record store without a
// workflow-authoring UI. Grounded on packages/core/workflow/parser.go's
// ParseWorkflowFile/DiscoverWorkflows, adapted from a GitHub-Actions-shaped
// job graph to this engine's flat ordered Step list.
package workflowtemplate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// maxTemplateSizeBytes bounds how large a single template file may be,
// matching the teacher's resource-exhaustion guard.
const maxTemplateSizeBytes = 1 * 1024 * 1024

// Load reads and parses a single workflow template file.
func Load(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflowtemplate: read %s: %w", path, err)
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("workflowtemplate: %s: %w", path, err)
	}

	// models.Workflow carries json struct tags (shared with the record
	// store's JSON encoding); UseJSONUnmarshaler makes goccy/go-yaml
	// follow those instead of requiring a parallel set of yaml tags.
	var wf models.Workflow
	if err := yaml.UnmarshalWithOptions(data, &wf, yaml.UseJSONUnmarshaler()); err != nil {
		return nil, fmt.Errorf("workflowtemplate: parse %s: %w", path, err)
	}
	return &wf, nil
}

// Discover finds every .yml/.yaml template file directly inside dir,
// skipping symlinks and subdirectories.
func Discover(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("workflowtemplate: directory cannot be empty")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workflowtemplate: resolve %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("workflowtemplate: read dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		full := filepath.Join(dir, entry.Name())
		abs, err := filepath.Abs(full)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(absDir, abs); err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		paths = append(paths, full)
	}
	return paths, nil
}

// LoadDir loads every template file Discover finds in dir.
func LoadDir(dir string) ([]*models.Workflow, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	workflows := make([]*models.Workflow, 0, len(paths))
	for _, path := range paths {
		wf, err := Load(path)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

func validate(data []byte) error {
	if len(data) > maxTemplateSizeBytes {
		return fmt.Errorf("template exceeds maximum size of %d bytes", maxTemplateSizeBytes)
	}
	if bytes.Contains(data, []byte{0x00}) {
		return fmt.Errorf("template contains null bytes (binary content not allowed)")
	}
	control := 0
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			control++
		}
	}
	if control > 10 {
		return fmt.Errorf("template contains excessive control characters (%d found)", control)
	}
	return nil
}
