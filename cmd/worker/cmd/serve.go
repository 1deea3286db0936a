package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/logx"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP trigger endpoint: accepts job submissions and processes them inline",
	RunE:  runServe,
}

func runServe(c *cobra.Command, _ []string) error {
	log := logx.New()

	a, err := newApp()
	if err != nil {
		return err
	}

	h := &triggerHandler{app: a, log: log}
	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Post("/workflows/{id}/trigger", h.trigger)

	srv := &http.Server{
		Addr:              a.cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := c.Context()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening on %s", a.cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type triggerHandler struct {
	app *app
	log *logx.Logger
}

func (h *triggerHandler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// trigger creates a submission and job for the named workflow and runs it
// to completion in the background, mirroring the behavior an external
// trigger fabric would drive: it returns the new job ID immediately and
// lets process-job's own orchestration path own the rest of the run.
func (h *triggerHandler) trigger(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "id")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("decode request body: %v", err), http.StatusBadRequest)
		return
	}

	tenantID := r.Header.Get("X-Tenant-ID")
	if tenantID == "" {
		tenantID, _ = body["tenant_id"].(string)
	}
	if tenantID == "" {
		http.Error(w, "tenant_id is required (X-Tenant-ID header or tenant_id field)", http.StatusBadRequest)
		return
	}

	submissionData := flattenToStrings(submissionDataFromPayload(body))

	ctx := r.Context()
	workflow, err := h.app.records.GetWorkflow(ctx, workflowID)
	if err != nil {
		http.Error(w, fmt.Sprintf("workflow %s not found: %v", workflowID, err), http.StatusNotFound)
		return
	}

	now := time.Now().UTC()
	submission := &models.Submission{
		SubmissionID:   uuid.NewString(),
		TenantID:       tenantID,
		SubmissionData: submissionData,
	}
	job := &models.Job{
		JobID:        uuid.NewString(),
		TenantID:     tenantID,
		WorkflowID:   workflow.WorkflowID,
		SubmissionID: submission.SubmissionID,
		Status:       models.JobPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Artifacts:    []string{},
	}

	if err := h.app.records.PutSubmission(ctx, submission); err != nil {
		http.Error(w, fmt.Sprintf("store submission: %v", err), http.StatusInternalServerError)
		return
	}
	if err := h.app.records.PutJob(ctx, job); err != nil {
		http.Error(w, fmt.Sprintf("store job: %v", err), http.StatusInternalServerError)
		return
	}

	jobID, workflowCopy, submissionCopy := job.JobID, workflow, submission
	log := h.log.With("job_id", jobID)
	go func() {
		bg := context.Background()
		log.Info("processing triggered job: workflow=%s", workflowCopy.WorkflowID)
		if err := h.app.orch.ProcessJob(bg, job, workflowCopy, submissionCopy); err != nil {
			log.Error("triggered job failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

// submissionDataFromPayload extracts the fields a new job should treat as
// its submission, accommodating both a direct external POST (the whole
// body is the submission) and a handoff POST from internal/handler's
// Handoff step, whose payload nests the originating submission under a
// "submission_data" key (see HandoffPayloadMode's submission_only and
// full_context modes).
func submissionDataFromPayload(body map[string]any) map[string]any {
	if nested, ok := body["submission_data"].(map[string]any); ok {
		return nested
	}
	data := make(map[string]any, len(body))
	for k, v := range body {
		if k == "tenant_id" {
			continue
		}
		data[k] = v
	}
	return data
}

func flattenToStrings(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
