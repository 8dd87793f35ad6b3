package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"imageResizer/api/middleware"
)

func NewRouter(h *BatchHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimiddleware.RealIP,
		middleware.TraceID,
		middleware.Recovery(logger),
		middleware.Logging(logger),
	)

	r.Get("/health", h.Health)

	r.Post("/resize", h.Resize)
	r.Post("/open", h.Open)

	r.Route("/batches", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/{id}", h.Status)
	})

	return r
}
