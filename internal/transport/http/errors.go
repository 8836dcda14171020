package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"dataclean/internal/cleaner"
	"dataclean/internal/connector"
	apierrors "dataclean/internal/errors"
	"dataclean/internal/jobs"
	"dataclean/internal/profiler"
	"dataclean/internal/storage"
)

// respondError maps domain errors onto structured API responses. Every
// handler funnels failures through here so status codes stay
// consistent.
func respondError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}

func toAPIError(err error) *apierrors.APIError {
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, storage.ErrFileNotFound):
		return apierrors.ErrFileNotFound
	case errors.Is(err, storage.ErrExtensionNotAllowed),
		errors.Is(err, connector.ErrUnsupportedFormat):
		return apierrors.ErrUnsupportedFormat
	case errors.Is(err, connector.ErrCorruptData):
		return apierrors.CorruptFileError(err)
	case errors.Is(err, profiler.ErrEmptyDataset),
		errors.Is(err, cleaner.ErrEmptyTable):
		return apierrors.ErrEmptyDataset
	case errors.Is(err, jobs.ErrJobNotFound):
		return apierrors.ErrJobNotFound
	case errors.Is(err, jobs.ErrJobTerminal):
		return apierrors.ErrJobTerminal
	case errors.Is(err, jobs.ErrQueueFull):
		return apierrors.ErrQueueFull
	default:
		return apierrors.ErrInternalServer
	}
}
