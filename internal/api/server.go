// Package api provides the read-only HTTP status API for Life OS.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
	"github.com/quantumlife/lifeos/internal/session"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	ledger   *journal.Ledger
	scores   *journal.AssessmentStore
	stats    *journal.Stats
	sessions *session.Store
	audit    *audit.Store

	started time.Time
}

// Config for the server
type Config struct {
	Host     string
	Port     int
	Ledger   *journal.Ledger
	Sessions *session.Store // optional, for /health
	Audit    *audit.Store   // optional, enables /api/v1/audit
}

// New creates a new API server
func New(cfg Config) *Server {
	s := &Server{
		ledger:   cfg.Ledger,
		scores:   journal.NewAssessmentStore(cfg.Ledger),
		stats:    journal.NewStats(cfg.Ledger),
		sessions: cfg.Sessions,
		audit:    cfg.Audit,
		started:  time.Now(),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS, for a local dashboard
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/journal", func(r chi.Router) {
			r.Get("/overview", s.handleOverview)
			r.Get("/tasks", s.handleTasks)
			r.Get("/habits", s.handleHabits)
			r.Get("/mood", s.handleMood)
			r.Get("/scores", s.handleScores)
		})

		if s.audit != nil {
			NewAuditAPI(s.audit).RegisterRoutes(r)
		}
	})

	s.router = r
}

// Start serves until Stop is called
func (s *Server) Start() error {
	logging.Info("API server listening on http://%s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure maps domain errors to status codes
func respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrMissingRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Error("API request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// intParam reads a positive integer query parameter
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", core.ErrInvalidInput, name)
	}
	return n, nil
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"memory_path": s.ledger.Root(),
	}
	if s.sessions != nil {
		result["pending_sessions"] = s.sessions.Len()
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	files, err := s.stats.Overview()
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.ledger.OpenTasks()
	if err != nil {
		respondFailure(w, err)
		return
	}

	type task struct {
		core.TaskEntry
		Key string `json:"key"`
	}
	out := make([]task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, task{TaskEntry: t, Key: journal.TaskKey(t.Content)})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tasks": out, "count": len(out)})
}

// handleHabits returns habit counts, or a streak with ?name=
// GET /api/v1/journal/habits?name=&window=
func (s *Server) handleHabits(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		window, err := intParam(r, "window", 30)
		if err != nil {
			respondFailure(w, err)
			return
		}
		streak, err := s.stats.HabitStreak(name, window)
		if err != nil {
			respondFailure(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"name": name, "window": window, "streak": streak})
		return
	}

	counts, err := s.stats.RankedHabits()
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"habits": counts})
}

// GET /api/v1/journal/mood?window=
func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	window, err := intParam(r, "window", 7)
	if err != nil {
		respondFailure(w, err)
		return
	}
	moods, err := s.stats.RecentMood(window)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"samples": moods,
		"average": journal.AverageMood(moods),
	})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.scores.List()
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
}
