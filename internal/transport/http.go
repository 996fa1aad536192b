package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ganot/taskmirror/internal/domain/cache"
	"github.com/ganot/taskmirror/internal/domain/syncer"
	"github.com/ganot/taskmirror/internal/domain/task"
	"github.com/ganot/taskmirror/internal/repository"
	"github.com/ganot/taskmirror/internal/tracker"
)

// TaskSource returns a user's open tasks. Both the live aggregator and the
// direct database reader satisfy it.
type TaskSource interface {
	GetUserTasks(ctx context.Context, email string) ([]task.Task, error)
}

// CacheReader reads filtered task snapshots.
type CacheReader interface {
	Read(ctx context.Context, email string, filters cache.Filters, maxCount int) ([]task.Task, error)
}

// SyncService starts and inspects background cache refreshes.
type SyncService interface {
	StartSync(ctx context.Context, email string, onComplete func(error)) (syncer.StartResult, error)
	Status(ctx context.Context, email string) (*syncer.Status, error)
}

// Server wires HTTP handlers.
type Server struct {
	live   TaskSource
	store  TaskSource
	cache  CacheReader
	sync   SyncService
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware. store may be nil
// when no direct database connection is configured.
func NewServer(live TaskSource, store TaskSource, cacheReader CacheReader, syncSvc SyncService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	r := chi.NewRouter()

	srv := &Server{live: live, store: store, cache: cacheReader, sync: syncSvc, logger: logger}

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Get("/tasks", srv.handleTasks)
		r.Get("/cached-tasks", srv.handleCachedTasks)
		r.Post("/sync", srv.handleSync)
		r.Get("/sync/status", srv.handleSyncStatus)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleTasks serves GET /tasks?email=&source=live|cache|store.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	var (
		tasks []task.Task
		err   error
	)
	switch source := r.URL.Query().Get("source"); source {
	case "", "live":
		tasks, err = s.live.GetUserTasks(r.Context(), email)
	case "cache":
		tasks, err = s.cache.Read(r.Context(), email, cache.All(), 0)
	case "store":
		if s.store == nil {
			writeError(w, http.StatusNotImplemented, "direct store is not configured")
			return
		}
		tasks, err = s.store.GetUserTasks(r.Context(), email)
	default:
		writeError(w, http.StatusBadRequest, "unknown source: "+source)
		return
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

// handleCachedTasks serves GET /cached-tasks with per-bucket filter flags.
// With no flags set, every bucket is included.
func (s *Server) handleCachedTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := q.Get("email")

	filters := cache.Filters{
		IncludeOverdue:  q.Get("overdue") == "true",
		IncludeDueToday: q.Get("due_today") == "true",
		IncludeUpcoming: q.Get("upcoming") == "true",
	}
	if !filters.IncludeOverdue && !filters.IncludeDueToday && !filters.IncludeUpcoming {
		filters = cache.All()
	}

	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+limitStr)
			return
		}
		limit = n
	}

	tasks, err := s.cache.Read(r.Context(), email, filters, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

// handleSync serves POST /sync?email=. A refresh already in flight is not an
// error; the response reports started=false.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	result, err := s.sync.StartSync(r.Context(), email, nil)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	status := http.StatusAccepted
	if !result.Started {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	status, err := s.sync.Status(r.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no sync recorded for this email")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, task.ErrEmailNotRecognized):
		writeError(w, http.StatusNotFound, err.Error())
	case tracker.IsAuth(err):
		writeError(w, http.StatusBadGateway, "tracker rejected credentials")
	case tracker.IsRateLimited(err):
		writeError(w, http.StatusServiceUnavailable, "tracker rate limit exhausted")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
