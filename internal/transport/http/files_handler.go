package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "dataclean/internal/errors"
	"dataclean/internal/profiler"
	"dataclean/internal/services"
	"dataclean/internal/storage"
)

// FileHandler serves upload, profile, download, list, and delete.
type FileHandler struct {
	service        *services.CleanService
	files          *storage.FileStore
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewFileHandler creates the file handler.
func NewFileHandler(service *services.CleanService, files *storage.FileStore, maxUploadBytes int64, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		service:        service,
		files:          files,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "files")),
	}
}

// Upload handles POST /api/files. The multipart field is named "file".
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, r, apierrors.ErrFileTooLarge, h.logger)
			return
		}
		respondError(w, r, apierrors.InvalidRequestWithError(err), h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apierrors.ErrValidation("file", "multipart field 'file' is required"), h.logger)
		return
	}
	defer file.Close()

	info, err := h.files.SaveUpload(header.Filename, file)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "file uploaded",
		slog.String("file_id", info.ID),
		slog.String("name", info.Name),
		slog.Int64("size_bytes", info.Size))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// Profile handles GET /api/files/{id}/profile. Query params: detailed,
// samples, sample_size.
func (h *FileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")
	opts := profiler.Options{
		Detailed:       r.URL.Query().Get("detailed") == "true",
		IncludeSamples: r.URL.Query().Get("samples") == "true",
	}
	if raw := r.URL.Query().Get("sample_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, r, apierrors.ErrValidation("sample_size", "must be a positive integer"), h.logger)
			return
		}
		opts.SampleSize = n
	}

	profile, err := h.service.ProfileFile(r.Context(), fileID, opts)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, profile)
}

// Download handles GET /api/files/{id}/download for uploads and
// outputs alike.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	info, err := h.files.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+info.Name+"\"")
	http.ServeFile(w, r, info.Location)
}

// List handles GET /api/files.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.List()
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// Delete handles DELETE /api/files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")
	if err := h.files.Delete(fileID); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, map[string]interface{}{"deleted": fileID})
}
