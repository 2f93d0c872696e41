// Package server exposes the campus over HTTP: a JSON API, server-rendered
// unit previews, a WebSocket activity player and health probes.
package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/p-n-ai/campus/internal/activity"
	"github.com/p-n-ai/campus/internal/campus"
	"github.com/p-n-ai/campus/internal/platform/logging"
)

// UserHeader carries the caller's user id. Authentication happens upstream.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Check is a readiness probe of one backend.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server serves the campus API.
type Server struct {
	app      *campus.App
	player   *activity.Player
	checks   []Check
	logger   *slog.Logger
	reporter *logging.Reporter
}

// Option configures a Server.
type Option func(*Server)

// WithCheck adds a readiness probe.
func WithCheck(name string, ping func(ctx context.Context) error) Option {
	return func(s *Server) { s.checks = append(s.checks, Check{Name: name, Ping: ping}) }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithReporter sets the reporter that collects server-side failures.
func WithReporter(r *logging.Reporter) Option {
	return func(s *Server) { s.reporter = r }
}

func New(app *campus.App, player *activity.Player, opts ...Option) *Server {
	s := &Server{app: app, player: player, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = logging.NewReporter(s.logger, 0)
	}
	return s
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("PUT /api/profile", s.handleSaveProfile)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/units/{unit}", s.handleUnit)
	mux.HandleFunc("GET /api/units/{unit}/render", s.handleRender)
	mux.HandleFunc("GET /units/{unit}/preview", s.handlePreview)
	mux.HandleFunc("POST /api/units/{unit}/blocks/{block}/toggle", s.handleToggle)

	mux.HandleFunc("GET /api/units/{unit}/draft", s.handleDraft)
	mux.HandleFunc("POST /api/units", s.handlePublish)
	mux.HandleFunc("PUT /api/units/{unit}", s.handlePublish)

	mux.HandleFunc("POST /api/enrollments", s.handleRequestEnrollment)
	mux.HandleFunc("DELETE /api/enrollments/{id}", s.handleCancelEnrollment)
	mux.HandleFunc("POST /api/enrollments/{id}/decision", s.handleDecideEnrollment)

	mux.HandleFunc("GET /api/subjects/{subject}/report.xlsx", s.handleReport)

	mux.HandleFunc("GET /api/units/{unit}/activities/{activity}", s.handleOpenActivity)
	mux.HandleFunc("POST /api/units/{unit}/activities/{activity}", s.handleActivityCommand)
	mux.HandleFunc("GET /ws/units/{unit}/activities/{activity}", s.handlePlayerSocket)

	mux.HandleFunc("GET /debug/errors", s.handleErrors)

	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the WebSocket player.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			return
		}
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// handleErrors drains the recent server-side failures. Teachers only.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	if _, err := s.app.AuthorizeTeacher(r.Context(), r.Header.Get(UserHeader)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": s.reporter.Flush()})
}
