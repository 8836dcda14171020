package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "dataclean/internal/errors"
	"dataclean/internal/jobs"
)

// JobHandler serves job status polling, listing, cancellation, and
// report retrieval.
type JobHandler struct {
	queue  *jobs.Queue
	logger *slog.Logger
}

// NewJobHandler creates the job handler.
func NewJobHandler(queue *jobs.Queue, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		queue:  queue,
		logger: logger.With(slog.String("handler", "jobs")),
	}
}

// jobResponse decorates a job with polling hints so clients know where
// to go next without hardcoding URLs.
func jobResponse(job *jobs.Job) map[string]interface{} {
	resp := map[string]interface{}{"job": job}
	if job.Status.Terminal() {
		if job.Status == jobs.StatusCompleted {
			resp["report_url"] = "/api/jobs/" + job.ID + "/report"
			if job.ResultFileID != "" {
				resp["download_url"] = "/api/files/" + job.ResultFileID + "/download"
			}
		}
	} else {
		resp["poll"] = map[string]interface{}{
			"url":         "/api/jobs/" + job.ID,
			"interval_ms": 500,
		}
	}
	return resp
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, jobResponse(job))
}

// List handles GET /api/jobs with an optional status filter.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := jobs.Status(raw)
		if !status.Valid() {
			respondError(w, r, apierrors.ErrValidation("status", "unknown job status"), h.logger)
			return
		}
		filter.Status = status
	}

	list, err := h.queue.List(filter)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// Cancel handles POST /api/jobs/{id}/cancel.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := h.queue.Cancel(jobID); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "job cancel requested", slog.String("job_id", jobID))

	job, err := h.queue.GetJob(jobID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, jobResponse(job))
}

// Report handles GET /api/jobs/{id}/report. Only completed jobs carry
// a report.
func (h *JobHandler) Report(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if job.Status != jobs.StatusCompleted || job.Report == nil {
		respondError(w, r, apierrors.NewWithDetails(http.StatusConflict, "REPORT_NOT_READY",
			"Job has not completed", string(job.Status)), h.logger)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"job_id":         job.ID,
		"result_file_id": job.ResultFileID,
		"report":         job.Report,
		"validation":     job.Validation,
	})
}
