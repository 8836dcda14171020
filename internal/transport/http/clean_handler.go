package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"dataclean/internal/cleaner"
	apierrors "dataclean/internal/errors"
	"dataclean/internal/jobs"
	"dataclean/internal/services"
)

var validate = validator.New()

// CleanRequest is the payload for both the async and sync clean
// endpoints.
type CleanRequest struct {
	FileID  string           `json:"file_id" validate:"required"`
	Mode    string           `json:"mode" validate:"omitempty,oneof=standard aggressive"`
	Options *cleaner.Options `json:"options,omitempty"`

	mode cleaner.Mode
	opts cleaner.Options
}

// Bind implements render.Binder.
func (req *CleanRequest) Bind(r *http.Request) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	mode, err := cleaner.ParseMode(req.Mode)
	if err != nil {
		return err
	}
	req.mode = mode
	req.opts = cleaner.DefaultOptions()
	if req.Options != nil {
		req.opts = *req.Options
	}
	return nil
}

// CleanHandler serves job submission and the bounded synchronous clean.
type CleanHandler struct {
	service *services.CleanService
	queue   *jobs.Queue
	logger  *slog.Logger
}

// NewCleanHandler creates the clean handler.
func NewCleanHandler(service *services.CleanService, queue *jobs.Queue, logger *slog.Logger) *CleanHandler {
	return &CleanHandler{
		service: service,
		queue:   queue,
		logger:  logger.With(slog.String("handler", "clean")),
	}
}

// Submit handles POST /api/clean: enqueue a cleaning job and answer 202
// with the pending job.
func (h *CleanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req := &CleanRequest{}
	if err := render.Bind(r, req); err != nil {
		respondError(w, r, apierrors.InvalidRequestWithError(err), h.logger)
		return
	}

	// Reject unknown files at submission instead of failing the job
	// later.
	if _, err := h.service.StatFile(req.FileID); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	job, err := h.queue.Submit(&jobs.Job{
		FileID:  req.FileID,
		Mode:    req.mode,
		Options: req.opts,
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "clean job submitted",
		slog.String("job_id", job.ID),
		slog.String("file_id", job.FileID),
		slog.String("mode", string(job.Mode)))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, jobResponse(job))
}

// Sync handles POST /api/clean/sync: clean inline and return the
// report with the result file ID.
func (h *CleanHandler) Sync(w http.ResponseWriter, r *http.Request) {
	req := &CleanRequest{}
	if err := render.Bind(r, req); err != nil {
		respondError(w, r, apierrors.InvalidRequestWithError(err), h.logger)
		return
	}

	resultID, report, err := h.service.CleanFileSync(r.Context(), req.FileID, req.mode, req.opts)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"result_file_id": resultID,
		"report":         report,
	})
}
