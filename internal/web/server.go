// Package web provides the HTTP server and handlers for the sweeper UI and
// its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/metrics"
	mw "github.com/JonMunkholm/sweeper/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// Server is the HTTP server for the sweeper.
type Server struct {
	cfg     *config.Config
	service *core.Service
	metrics *metrics.Metrics
	limiter *mw.RateLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. m may be nil to disable metrics.
func NewServer(cfg *config.Config, service *core.Service, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		metrics: m,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.Compress(5, "text/html", "text/css", "application/json", "text/csv", "image/svg+xml"))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.limiter.OnLimit = func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
		}
		s.router.Use(s.limiter.Handler)
	}
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/upload", s.handleUpload)
	s.router.Route("/w/{workspaceID}", func(r chi.Router) {
		r.Get("/", s.handleWorkspace)
		r.Get("/files/{fileID}", s.handleFile)
		r.Get("/files/{fileID}/chart.png", s.handleFileChart)
		r.Get("/files/{fileID}/download", s.handleFileDownload)
	})

	// Stateless API
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/formats", s.handleListFormats)
		r.Post("/preview", s.handleAPIPreview)
		r.Post("/convert", s.handleAPIConvert)
		r.Post("/chart", s.handleAPIChart)
	})
}

// Start listens on the configured address until Shutdown is called.
// Idle rate limit buckets are swept while the server runs.
func (s *Server) Start() error {
	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.limiter.Run(ctx, time.Minute)
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status     string                `json:"status"`
	Runs       core.RunLimiterStatus `json:"runs"`
	Workspaces int                   `json:"workspaces"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:     "ok",
		Runs:       s.service.Limiter().Status(),
		Workspaces: s.service.Workspaces().Len(),
	})
}
