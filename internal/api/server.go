// Package api provides the HTTP control API for the editor daemon.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wavecut/wavecut-editor/internal/editor"
	"github.com/wavecut/wavecut-editor/internal/journal"
	"github.com/wavecut/wavecut-editor/internal/sse"
)

// Options configures the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	// RequestsPerSecond limits requests per client IP. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	registry   *editor.Registry
	journal    *journal.Journal
	sseManager *sse.Manager
	sseHandler *sse.Handler
	limiter    *RateLimiter
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
	startedAt  time.Time
}

// NewServer creates a server with all routes configured. journal may be nil.
func NewServer(registry *editor.Registry, jrnl *journal.Journal, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		registry:   registry,
		journal:    jrnl,
		sseManager: sseManager,
		sseHandler: sse.NewHandler(sseManager, logger),
		router:     chi.NewRouter(),
		logger:     logger,
		startedAt:  time.Now(),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(opts.RequestsPerSecond, opts.Burst)
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Wavecut Editor API", opts.Version)
	humaConfig.Info.Description = "Control API for headless audio edit sessions"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases the request limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

func (s *Server) setupRoutes() {
	// The event stream is a plain handler; huma does not model SSE streams.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)

	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerTransportRoutes()
	s.registerWaveformRoutes()
	s.registerSelectionRoutes()
	s.registerTranscriptRoutes()
	s.registerModificationRoutes()
	s.registerProjectRoutes()
}
