package wiring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// WorkflowGateway resolves workflows from the record store and triggers
// handoff jobs by POSTing to this engine's own public trigger endpoint,
// reusing the same entry point an external webhook caller would hit.
type WorkflowGateway struct {
	Records       ports.RecordStore
	HTTP          ports.HttpClient
	PublicBaseURL string
}

func (w *WorkflowGateway) GetWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.Records.GetWorkflow(ctx, workflowID)
}

func (w *WorkflowGateway) TriggerJob(ctx context.Context, workflowID, tenantID string, payload map[string]any) (string, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("wiring: marshal handoff payload: %w", err)
	}

	url := strings.TrimRight(w.PublicBaseURL, "/") + "/workflows/" + workflowID + "/trigger"
	status, respBody, err := w.HTTP.Do(ctx, "POST", url, map[string]string{
		"Content-Type": "application/json",
		"X-Tenant-ID":  tenantID,
	}, body)
	if err != nil {
		return "", status, fmt.Errorf("wiring: trigger handoff workflow %s: %w", workflowID, err)
	}

	var decoded struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(respBody, &decoded)
	return decoded.JobID, status, nil
}
