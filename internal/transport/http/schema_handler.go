package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "dataclean/internal/errors"
	"dataclean/internal/services"
)

// ValidateRequest is the payload for POST /api/validate. SchemaID is
// optional; without it only the built-in rules run.
type ValidateRequest struct {
	FileID   string `json:"file_id" validate:"required"`
	SchemaID string `json:"schema_id,omitempty"`
}

// Bind implements render.Binder.
func (req *ValidateRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

// InferSchemaRequest is the payload for POST /api/schema/infer.
type InferSchemaRequest struct {
	FileID string `json:"file_id" validate:"required"`
}

// Bind implements render.Binder.
func (req *InferSchemaRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

// SchemaHandler serves validation and schema inference.
type SchemaHandler struct {
	service *services.CleanService
	logger  *slog.Logger
}

// NewSchemaHandler creates the schema handler.
func NewSchemaHandler(service *services.CleanService, logger *slog.Logger) *SchemaHandler {
	return &SchemaHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "schema")),
	}
}

// Validate handles POST /api/validate. Schema violations are data, not
// an HTTP error: the response is 200 with passed=false.
func (h *SchemaHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req := &ValidateRequest{}
	if err := render.Bind(r, req); err != nil {
		respondError(w, r, apierrors.InvalidRequestWithError(err), h.logger)
		return
	}

	result, err := h.service.ValidateFile(r.Context(), req.FileID, req.SchemaID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	render.JSON(w, r, result)
}

// Infer handles POST /api/schema/infer: derive a schema from the file,
// persist it, and return it with its ID.
func (h *SchemaHandler) Infer(w http.ResponseWriter, r *http.Request) {
	req := &InferSchemaRequest{}
	if err := render.Bind(r, req); err != nil {
		respondError(w, r, apierrors.InvalidRequestWithError(err), h.logger)
		return
	}

	schemaID, schema, err := h.service.InferSchemaFile(r.Context(), req.FileID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"schema_id": schemaID,
		"schema":    schema,
	})
}
