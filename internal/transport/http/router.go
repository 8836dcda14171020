package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"dataclean/internal/config"
	"dataclean/internal/jobs"
	"dataclean/internal/middleware"
	"dataclean/internal/services"
	"dataclean/internal/storage"
)

// RouterDeps carries everything the router needs. The websocket handler
// is a plain http.Handler so transport does not import the hub package.
type RouterDeps struct {
	Service   *services.CleanService
	Queue     *jobs.Queue
	Files     *storage.FileStore
	WSHandler http.Handler
	Config    *config.Config
	Logger    *slog.Logger
}

// NewRouter builds the chi router with the full API surface.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files := NewFileHandler(deps.Service, deps.Files, deps.Config.Server.MaxUploadBytes, logger)
	clean := NewCleanHandler(deps.Service, deps.Queue, logger)
	jobsH := NewJobHandler(deps.Queue, logger)
	schema := NewSchemaHandler(deps.Service, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceID)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(chimiddleware.Timeout(120 * time.Second))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", handleHealthz)

		r.Route("/files", func(r chi.Router) {
			r.Post("/", files.Upload)
			r.Get("/", files.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/profile", files.Profile)
				r.Get("/download", files.Download)
				r.Delete("/", files.Delete)
			})
		})

		r.Route("/clean", func(r chi.Router) {
			r.Post("/", clean.Submit)
			r.Post("/sync", clean.Sync)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobsH.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", jobsH.Get)
				r.Post("/cancel", jobsH.Cancel)
				r.Get("/report", jobsH.Report)
			})
		})

		r.Post("/validate", schema.Validate)
		r.Post("/schema/infer", schema.Infer)
	})

	if deps.WSHandler != nil {
		r.Get("/ws", deps.WSHandler.ServeHTTP)
	}

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
