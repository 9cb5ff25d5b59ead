// Package server exposes the HTTP trigger surface: a scrape endpoint
// returning the batch summary, and a health check. The inventory CRUD
// API lives in the surrounding application, not here.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/pipeline"
)

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes scrape triggers to the single-flight runner.
type Server struct {
	runner *pipeline.Runner
	pinger Pinger // may be nil
}

// New creates a Server. pinger may be nil when the store has no
// meaningful health probe.
func New(runner *pipeline.Runner, pinger Pinger) *Server {
	return &Server{runner: runner, pinger: pinger}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1/inventory", func(r chi.Router) {
		// A scrape hits the source site; keep trigger-happy clients off it.
		r.With(httprate.LimitByIP(5, 1*time.Minute)).
			Post("/scrape", s.handleScrape)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(req.Context()); err != nil {
			render.Status(req, http.StatusServiceUnavailable)
			render.JSON(w, req, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	render.JSON(w, req, map[string]any{"ok": true})
}

// handleScrape runs the pipeline synchronously and returns its summary.
// Query params: limit (max listings), enrich (all|missing-price|none).
func (s *Server) handleScrape(w http.ResponseWriter, req *http.Request) {
	var ov pipeline.Overrides

	if raw := req.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"ok": false, "error": "limit must be a non-negative integer"})
			return
		}
		ov.Limit = limit
	}

	switch enrich := pipeline.EnrichPolicy(req.URL.Query().Get("enrich")); enrich {
	case "", pipeline.EnrichAll, pipeline.EnrichMissingPrice, pipeline.EnrichNone:
		ov.Enrich = enrich
	default:
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, map[string]any{"ok": false, "error": "enrich must be all, missing-price or none"})
		return
	}

	summary, err := s.runner.Run(req.Context(), ov)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		render.Status(req, http.StatusConflict)
		render.JSON(w, req, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if err != nil {
		logger.Error("triggered scrape failed", "error", err)
		render.Status(req, http.StatusBadGateway)
		render.JSON(w, req, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	render.JSON(w, req, map[string]any{"ok": true, "summary": summary})
}
