// Package context implements the Context Builder (C2): it assembles the
// single previous_context string fed to each step's model call from the
// form submission and prior step outputs. Pure string-assembly over
// internal/models types, in the teacher's strings.Builder idiom
// (packages/core/heal/prompt label: value section style).
package context

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// FormBlock renders the submission's field_label: value lines, one per
// line, labels resolved via the field-label map with the field id as
// fallback.
func FormBlock(sub *models.Submission) string {
	if sub == nil || len(sub.SubmissionData) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sub.SubmissionData))
	for k := range sub.SubmissionData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		label := k
		if sub.FieldLabels != nil {
			if l, ok := sub.FieldLabels[k]; ok && l != "" {
				label = l
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", label, sub.SubmissionData[k])
	}
	return b.String()
}

// StepBlock renders one dependency step's contribution: "Step N: <name>"
// followed by its output and, if present, a Generated Images sub-block.
func StepBlock(stepOrder int, name, output string, imageURLs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %d: %s\n%s\n", stepOrder, name, output)
	if len(imageURLs) > 0 {
		b.WriteString("Generated Images:\n")
		for _, u := range imageURLs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}
	return b.String()
}

// Mode selects which steps StepBlock-level context includes.
type Mode int

const (
	// ModeAccumulated concatenates every step's output — used for final
	// HTML generation.
	ModeAccumulated Mode = iota
	// ModePerStep includes only a step's resolved dependencies (or, with
	// no explicit depends_on, every strictly prior step).
	ModePerStep
)

// Build assembles previous_context for stepIndex given the full runtime
// step slice (already executed ones carry Output/ImageURLs), the
// submission, and that step's normalized dependency indices (ignored in
// ModeAccumulated).
func Build(mode Mode, sub *models.Submission, steps []models.RuntimeStep, stepIndex int, deps []int) string {
	var b strings.Builder
	if form := FormBlock(sub); form != "" {
		b.WriteString(form)
		b.WriteString("\n")
	}

	switch mode {
	case ModeAccumulated:
		for i := 0; i < stepIndex && i < len(steps); i++ {
			b.WriteString(StepBlock(steps[i].StepOrder, steps[i].Name, steps[i].Output, steps[i].ImageURLs))
		}
	case ModePerStep:
		if deps == nil {
			for i := 0; i < stepIndex && i < len(steps); i++ {
				b.WriteString(StepBlock(steps[i].StepOrder, steps[i].Name, steps[i].Output, steps[i].ImageURLs))
			}
		} else {
			sorted := append([]int{}, deps...)
			sort.Ints(sorted)
			for _, d := range sorted {
				if d < 0 || d >= len(steps) {
					continue
				}
				s := steps[d]
				b.WriteString(StepBlock(s.StepOrder, s.Name, s.Output, s.ImageURLs))
			}
		}
	}
	return b.String()
}

// DeliverableContext selects the subset of steps designated deliverables
// (the last step by default, or any steps tagged IsDeliverable) and emits
// them in step-order ascending order, the same format as StepBlock.
func DeliverableContext(steps []models.RuntimeStep) string {
	if len(steps) == 0 {
		return ""
	}
	var tagged []models.RuntimeStep
	for _, s := range steps {
		if s.IsDeliverable {
			tagged = append(tagged, s)
		}
	}
	if len(tagged) == 0 {
		tagged = []models.RuntimeStep{steps[len(steps)-1]}
	}
	sort.Slice(tagged, func(i, j int) bool { return tagged[i].StepOrder < tagged[j].StepOrder })

	var b strings.Builder
	for _, s := range tagged {
		b.WriteString(StepBlock(s.StepOrder, s.Name, s.Output, s.ImageURLs))
	}
	return b.String()
}

// PreviousImageURLs unions the ImageURLs of every step referenced by deps
// (deduplicated, order preserved).
func PreviousImageURLs(steps []models.RuntimeStep, deps []int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range deps {
		if d < 0 || d >= len(steps) {
			continue
		}
		for _, u := range steps[d].ImageURLs {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}
