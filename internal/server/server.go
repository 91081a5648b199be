// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package server exposes project validation over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/mbconfig/internal/health"
	"github.com/ManuGH/mbconfig/internal/log"
	"github.com/ManuGH/mbconfig/internal/metrics"
	"github.com/ManuGH/mbconfig/internal/project"
	"github.com/ManuGH/mbconfig/internal/schema"
	"github.com/ManuGH/mbconfig/internal/telemetry"
	"github.com/ManuGH/mbconfig/internal/validate"
)

// TracerName names the tracer of request spans.
const TracerName = "mbconfig/server"

const (
	// DefaultListenAddr is used when Config.ListenAddr is empty.
	DefaultListenAddr = ":8088"
	// DefaultMaxBodyBytes bounds the size of a document posted to /v1/validate.
	DefaultMaxBodyBytes int64 = 1 << 20
	// DefaultRateLimit is the number of requests per client and window.
	DefaultRateLimit  = 120
	DefaultRateWindow = time.Minute
)

// Config configures the HTTP service.
type Config struct {
	ListenAddr   string
	RateLimit    int
	RateWindow   time.Duration
	MaxBodyBytes int64
	Logger       zerolog.Logger

	// Version is reported by /healthz.
	Version string
	// Project, when set, is served by /v1/project and checked by /readyz.
	Project *project.Holder
}

// Server is the validation HTTP service.
type Server struct {
	cfg        Config
	logger     zerolog.Logger
	health     *health.Manager
	router     chi.Router
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// Violation is a schema violation with its position in the posted document, when known.
type Violation struct {
	validate.Error
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

// ValidateResponse is the body of POST /v1/validate for decodable documents.
type ValidateResponse struct {
	Valid      bool             `json:"valid"`
	Violations []Violation      `json:"violations,omitempty"`
	Warnings   []validate.Error `json:"warnings"`
}

// New creates a server; zero Config fields take their defaults.
func New(cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = DefaultRateWindow
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{cfg: cfg, logger: cfg.Logger, health: health.NewManager(cfg.Version)}
	s.health.RegisterChecker(health.SchemaChecker{})
	if cfg.Project != nil {
		s.health.RegisterChecker(health.NewFileChecker("project_file", cfg.Project.Path()))
		s.health.RegisterChecker(health.NewReloadChecker(cfg.Project.LastReload))
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(tracing(TracerName))
	r.Use(log.Middleware())
	r.Use(requestMetrics)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
		r.Get("/schema", s.handleSchema)
		r.Post("/validate", s.handleValidate)
		r.Get("/project", s.handleProject)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(schema.JSON())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	f, err := requestFormat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body: " + err.Error()})
		return
	}

	start := time.Now()
	cfg, err := project.Parse(body, f)
	project.Observe(metrics.SourceHTTP, start, err)

	if err != nil {
		vs := project.Violations(err)
		if vs == nil {
			logger.Debug().Err(err).Str(log.FieldFormat, f.String()).Msg("document could not be decoded")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		resp := ValidateResponse{Valid: false, Warnings: []validate.Error{}}
		for _, v := range vs {
			out := Violation{Error: v}
			if pos, ok := project.Locate(body, f, v.Field); ok {
				out.Line, out.Column = pos.Line, pos.Column
			}
			resp.Violations = append(resp.Violations, out)
		}
		trace.SpanFromContext(r.Context()).SetAttributes(telemetry.ValidationAttributes(f.String(), len(vs), 0)...)
		logger.Info().
			Str(log.FieldFormat, f.String()).
			Int(log.FieldViolations, len(vs)).
			Msg("document rejected")
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	warnings := project.Lint(cfg)
	if warnings == nil {
		warnings = []validate.Error{}
	}
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.ValidationAttributes(f.String(), 0, len(warnings))...)
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Warnings: warnings})
}

// handleProject returns the current configuration of the watched project file.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Project == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no project file is being served"})
		return
	}

	f := project.FormatJSON
	if name := r.URL.Query().Get("format"); name != "" {
		var err error
		if f, err = project.ParseFormat(name); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	var buf bytes.Buffer
	if err := project.Encode(&buf, s.cfg.Project.Get(), f); err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("encode project configuration")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode project configuration"})
		return
	}

	w.Header().Set("Content-Type", contentTypes[f])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

var contentTypes = map[project.Format]string{
	project.FormatJSON: "application/json",
	project.FormatYAML: "application/yaml",
	project.FormatTOML: "application/toml",
}

// requestFormat picks the document format from ?format= or the Content-Type, defaulting to JSON.
func requestFormat(r *http.Request) (project.Format, error) {
	if name := r.URL.Query().Get("format"); name != "" {
		return project.ParseFormat(name)
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return project.FormatJSON, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q", project.ErrUnsupportedFormat, ct)
	}
	switch mt {
	case "application/json", "text/plain":
		return project.FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return project.FormatYAML, nil
	case "application/toml", "text/toml":
		return project.FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: content type %q", project.ErrUnsupportedFormat, mt)
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldEvent, "server.start").
		Str("addr", ln.Addr().String()).
		Msg("starting validation server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("validation server failed: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str(log.FieldEvent, "server.shutdown").Msg("shutting down validation server")
	return s.httpServer.Shutdown(ctx)
}
