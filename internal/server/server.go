// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quirybot/pipeline/internal/metrics"
	"github.com/quirybot/pipeline/internal/supervisor"
)

// NewRouter builds the chi router shared by every worker: request ID/logging/
// recovery middleware, permissive CORS (this pipeline has no browser client
// in scope, but the teacher's HTTP servers always mount cors.Handler), and
// the health/metrics endpoints. askHandler may be nil for workers that don't
// expose /ask (ingestworker, gateway).
func NewRouter(sup *supervisor.Supervisor, m *metrics.Registry, askHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", NewHealthHandler(sup))
	r.Handle("/metrics", m.Handler())

	if askHandler != nil {
		r.Mount("/ask", askHandler)
	}

	return r
}
