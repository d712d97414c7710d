package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/api/handlers"
	"github.com/paperbase-ai/paperbase/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
	GenerateHandler *handlers.GenerateHandler
	UsageHandler    *handlers.UsageHandler
	MaxBodyBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Post("/url", cfg.DocumentHandler.UploadByURL)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Post("/{id}/ask", cfg.AskHandler.Ask)
		r.Post("/{id}/generate/bulk", cfg.GenerateHandler.GenerateBulk)
	})

	r.Post("/generate", cfg.GenerateHandler.Generate)
	r.Get("/usage", cfg.UsageHandler.Aggregate)

	return r
}
