// Package api exposes the tracker state and the latest allocation over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"GTAASentinel/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Source provides the state served by the API.
type Source interface {
	Latest() (*model.Evaluation, []model.TargetWeight)
	Snapshots() []model.TrackerSnapshot
}

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	source Source
	log    zerolog.Logger
}

type allocationResponse struct {
	Evaluation *model.Evaluation    `json:"evaluation"`
	Targets    []model.TargetWeight `json:"targets"`
	Invested   float64              `json:"invested"`
}

// New creates a server listening on addr.
func New(addr string, source Source, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		source: source,
		log:    log.With().Str("component", "api").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, e.g. for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/trackers", s.handleTrackers)
		r.Get("/trackers/{symbol}", s.handleTracker)
		r.Get("/allocation", s.handleAllocation)
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrackers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Snapshots())
}

func (s *Server) handleTracker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	for _, snap := range s.source.Snapshots() {
		if snap.Symbol == symbol {
			s.writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "unknown symbol "+symbol)
}

func (s *Server) handleAllocation(w http.ResponseWriter, _ *http.Request) {
	eval, targets := s.source.Latest()
	if eval == nil {
		s.writeError(w, http.StatusNotFound, "no allocation evaluated yet")
		return
	}
	s.writeJSON(w, http.StatusOK, allocationResponse{
		Evaluation: eval,
		Targets:    targets,
		Invested:   eval.TotalWeight(),
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
