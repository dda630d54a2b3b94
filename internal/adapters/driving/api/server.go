package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/lexrag/internal/logger"
)

// Server timeouts.
const (
	DefaultRequestTimeout = 5 * time.Minute
	shutdownTimeout       = 15 * time.Second
	readHeaderTimeout     = 10 * time.Second
)

// Options configures the HTTP API.
type Options struct {
	// Version is reported by / and /health.
	Version string

	// AllowedOrigins is the CORS allow list. Empty allows any origin.
	AllowedOrigins []string

	// JWTSecret enables bearer authentication on /chat and /collections.
	JWTSecret string

	// RequestTimeout bounds one request. Zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// NewHandler builds the chi router with every route mounted.
func NewHandler(ports *Ports, opts Options) (http.Handler, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handlers{ports: ports, version: opts.Version}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", h.root)
	r.Get("/health", h.health)

	r.Group(func(protected chi.Router) {
		if opts.JWTSecret != "" {
			protected.Use(bearerAuth([]byte(opts.JWTSecret)))
		}
		protected.Post("/chat", h.chat)
		protected.Get("/collections", h.collections)
	})

	return r, nil
}

// Server wraps the HTTP server instance.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
