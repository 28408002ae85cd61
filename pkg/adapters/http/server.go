// Package http exposes the manifest registry and compiler as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the subset of the lattice facade served over HTTP.
type Service interface {
	Create(ctx context.Context, m *domain.Manifest, author string) (*domain.Manifest, error)
	Get(ctx context.Context, id string) (*domain.Manifest, error)
	List(ctx context.Context, status domain.Status) ([]*domain.Manifest, error)
	Search(ctx context.Context, query string) ([]*domain.Manifest, error)
	Update(ctx context.Context, id string, m *domain.Manifest, changeNote, author string) (*domain.Manifest, error)
	Delete(ctx context.Context, id string) error

	GetVersion(ctx context.Context, id string, version int) (*domain.Manifest, error)
	ListVersions(ctx context.Context, id string) ([]domain.VersionInfo, error)
	Rollback(ctx context.Context, id string, version int, author string) (*domain.Manifest, error)
	SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Manifest, error)
	Diff(ctx context.Context, id string, versionA, versionB int) ([]domain.Change, error)

	SaveAsTemplate(ctx context.Context, id, name, description string) (*domain.Template, error)
	CreateFromTemplate(ctx context.Context, templateID, name, author string) (*domain.Manifest, error)
	ListTemplates(ctx context.Context) ([]*domain.Template, error)

	Export(ctx context.Context, id string) ([]byte, error)
	Import(ctx context.Context, data []byte, author string) (*domain.Manifest, error)
	ImportYAML(ctx context.Context, data []byte, author string) (*domain.Manifest, error)

	Validate(m *domain.Manifest) (errs []string, warnings []string)
	Compile(ctx context.Context, m *domain.Manifest) domain.CompileResult
	CompileByID(ctx context.Context, id string) (domain.CompileResult, error)
	Run(ctx context.Context, id string, initial map[string]any) domain.RunResult
	Schema(m *domain.Manifest) []compiler.SchemaField
	Mermaid(m *domain.Manifest) string
}

// Server handles the HTTP API.
type Server struct {
	svc     Service
	streams *StreamManager
	metrics http.Handler
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		streams: NewStreamManager(),
		version: "unknown",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams.logger = s.logger
	return s
}

// Streams returns the manager that fans out manifest events.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) http.Handler {
	return NewServer(svc, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/events", s.subscribeEvents)

	r.Post("/validate", s.validate)
	r.Post("/compile", s.compileManifest)

	r.Route("/manifests", func(r chi.Router) {
		r.Get("/", s.listManifests)
		r.Post("/", s.createManifest)
		r.Post("/import", s.importManifest)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getManifest)
			r.Put("/", s.updateManifest)
			r.Delete("/", s.deleteManifest)

			r.Get("/versions", s.listVersions)
			r.Get("/versions/{version}", s.getVersion)
			r.Post("/rollback", s.rollback)
			r.Put("/status", s.setStatus)
			r.Get("/diff", s.diff)
			r.Get("/export", s.export)
			r.Post("/templates", s.saveTemplate)

			r.Post("/compile", s.compileByID)
			r.Post("/run", s.run)
			r.Get("/schema", s.schema)
			r.Get("/graph", s.graph)
		})
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Post("/{id}/instantiate", s.instantiate)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "lattice-http",
		"version": strings.TrimSpace(s.version),
	})
}

// -- Helpers --

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.DebugContext(r.Context(), "request declined", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.DebugContext(r.Context(), "invalid request", "path", r.URL.Path, "error", err)
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrManifestNotFound),
		errors.Is(err, domain.ErrVersionNotFound),
		errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrManifestExists),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
