package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/llm"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// AIGeneration assembles context, invokes the model provider (already
// wrapped in the appropriate tool loop by deps.Provider), and persists
// the text output plus any harvested images as artifacts, per spec
// §4.8.1.
type AIGeneration struct {
	deps Deps
}

func (h *AIGeneration) Execute(ctx context.Context, in Input) (models.StepOutput, error) {
	instructions := in.Step.Instructions
	if in.PreviousContext != "" {
		instructions = in.PreviousContext + "\n\n" + instructions
	}

	tools := make([]map[string]any, 0, len(in.Step.Tools))
	for _, t := range in.Step.Tools {
		if m, ok := t.(map[string]any); ok {
			tools = append(tools, m)
		}
	}

	hasImageGenTool := false
	for _, t := range tools {
		if t["type"] == "image_generation" {
			hasImageGenTool = true
		}
	}

	req := llm.Build(llm.RequestParams{
		Model:           in.Step.ModelID,
		Instructions:    instructions,
		Input:           instructions,
		Tools:           tools,
		ToolChoice:      string(in.Step.ToolChoice),
		IncludeImages:   len(in.PreviousImageURLs) > 0,
		HasImageGenTool: hasImageGenTool,
	})

	outputText, imageURLs, safetyChecks, usage, err := h.deps.Provider.Call(ctx, req)
	if err != nil {
		return models.StepOutput{}, fmt.Errorf("handler: ai_generation step %q: %w", in.Step.Name, err)
	}

	art, err := h.deps.Artifacts.Store(ctx, in.TenantID, in.JobID,
		fmt.Sprintf("step-%d-%s.md", in.StepIndex, sanitizeStepName(in.Step.Name)),
		[]byte(outputText), "text/markdown")
	if err != nil {
		return models.StepOutput{}, fmt.Errorf("handler: persist output for step %q: %w", in.Step.Name, err)
	}

	imageArtifactIDs := make([]string, 0, len(imageURLs))
	for i, url := range imageURLs {
		imgArt, err := h.deps.Artifacts.StoreImageFromURL(ctx, in.TenantID, in.JobID,
			fmt.Sprintf("step-%d-image-%d.png", in.StepIndex, i), url, h.deps.ImageDownloader)
		if err != nil {
			continue
		}
		imageArtifactIDs = append(imageArtifactIDs, imgArt.ArtifactID)
	}

	h.recordUsage(ctx, in, usage)

	return models.StepOutput{
		StepName:                 in.Step.Name,
		StepIndex:                in.StepIndex,
		Output:                   outputText,
		ArtifactID:               art.ArtifactID,
		ImageURLs:                imageURLs,
		ImageArtifactIDs:         imageArtifactIDs,
		AcknowledgedSafetyChecks: safetyChecks,
	}, nil
}

// recordUsage writes a best-effort audit row for the model call; a
// failure to persist it never fails the step.
func (h *AIGeneration) recordUsage(ctx context.Context, in Input, usage models.Usage) {
	if h.deps.Usage == nil {
		return
	}
	_ = h.deps.Usage.PutUsageRecord(ctx, &models.UsageRecord{
		UsageID:      uuid.NewString(),
		TenantID:     in.TenantID,
		JobID:        in.JobID,
		Model:        in.Step.ModelID,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		ServiceType:  "ai_generation",
		CreatedAt:    time.Now().UTC(),
	})
}

func sanitizeStepName(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, byte(r))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
