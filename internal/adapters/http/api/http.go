// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies struct {
	// Submitter performs the similarity call for every mounted handle.
	Submitter app.Submitter

	// HandleOptions are applied to each handle mounted per request.
	HandleOptions []app.Option

	// AllowedOrigins feeds the CORS policy of the JSON API. Empty allows any.
	AllowedOrigins []string

	Logger logger.Logger
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	similarityHandler *SimilarityHandler
	allowedOrigins    []string
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	if deps.Submitter == nil {
		panic("api: submitter is nil")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		similarityHandler: NewSimilarityHandler(deps),
		allowedOrigins:    deps.AllowedOrigins,
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(corsOptions(s.allowedOrigins)))
		submit := MetricsMiddleware(s.similarityHandler.HandleOffense, "similarity_offense")
		r.Post("/api/similarity/offense", submit)
		// preflight is answered by the cors handler before this runs
		r.Options("/api/similarity/offense", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerRequestID},
		ExposedHeaders: []string{headerRequestID},
		MaxAge:         300,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
