// Package server provides the HTTP server and routing for the tipster dashboard.
package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/tipster/internal/config"
	"github.com/aristath/tipster/internal/database"
	"github.com/aristath/tipster/internal/dataset"
	"github.com/aristath/tipster/internal/modules/charts"
	chartshandlers "github.com/aristath/tipster/internal/modules/charts/handlers"
	"github.com/aristath/tipster/internal/modules/overview"
	overviewhandlers "github.com/aristath/tipster/internal/modules/overview/handlers"
	"github.com/aristath/tipster/internal/reliability"
	"github.com/aristath/tipster/internal/scheduler"
	"github.com/aristath/tipster/pkg/embedded"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	CacheDB   *database.DB
	Config    *config.Config
	Port      int
	DevMode   bool
	Assembler *dataset.Assembler
	Scheduler *scheduler.Scheduler
	R2Backups *reliability.R2BackupService // nil when offsite backups are disabled
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cacheDB        *database.DB
	cfg            *config.Config
	assembler      *dataset.Assembler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	// Register common MIME types to ensure correct Content-Type headers
	_ = mime.AddExtensionType(".js", "application/javascript")
	_ = mime.AddExtensionType(".mjs", "application/javascript")
	_ = mime.AddExtensionType(".css", "text/css")
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".woff", "font/woff")

	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.CacheDB,
		cfg.Assembler,
		cfg.Scheduler,
		cfg.R2Backups,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cacheDB:        cfg.CacheDB,
		cfg:            cfg.Config,
		assembler:      cfg.Assembler,
		systemHandlers: systemHandlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetRefreshJob registers the dataset refresh job for manual triggering via API
func (s *Server) SetRefreshJob(job scheduler.Job) {
	s.systemHandlers.SetRefreshJob(job)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check (before SPA routing)
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		systemHandlers := s.systemHandlers

		// System monitoring and operations
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", systemHandlers.HandleSystemStatus)
			r.Get("/jobs", systemHandlers.HandleJobsStatus)
			r.Get("/database/stats", systemHandlers.HandleDatabaseStats)
			r.Get("/disk", systemHandlers.HandleDiskUsage)
			r.Get("/backups", systemHandlers.HandleBackups)
			r.Post("/refresh", systemHandlers.HandleTriggerRefresh)
		})

		// Per-source feed health
		r.Get("/dataset/status", systemHandlers.HandleDatasetStatus)

		// Overview module
		overviewService := overview.NewService(s.assembler, s.log)
		overviewHandler := overviewhandlers.NewHandler(overviewService, s.log)
		overviewHandler.RegisterRoutes(r)

		// Charts module
		chartsService := charts.NewService(s.assembler, s.log)
		chartsHandler := chartshandlers.NewHandler(chartsService, s.log)
		chartsHandler.RegisterRoutes(r)
	})

	// Serve built frontend files from embedded filesystem
	frontendFS, err := fs.Sub(embedded.Files, "frontend/dist")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create frontend filesystem from embedded files")
	} else {
		assetsFS, err := fs.Sub(frontendFS, "assets")
		if err != nil {
			s.log.Warn().Err(err).Msg("Frontend assets directory not found in embedded files")
		} else {
			fileServer := http.FileServer(http.FS(assetsFS))
			// Wrap file server with MIME type handler to ensure correct Content-Type headers
			assetsHandler := s.assetsHandler(fileServer)
			s.router.Handle("/assets/*", http.StripPrefix("/assets/", assetsHandler))
		}

		// Serve index.html for root and all non-API routes (SPA routing)
		s.router.Get("/", s.handleDashboard)
		s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api") && !strings.HasPrefix(r.URL.Path, "/health") {
				indexFile, err := frontendFS.Open("index.html")
				if err != nil {
					s.log.Error().Err(err).Msg("Failed to open embedded index.html")
					http.NotFound(w, r)
					return
				}
				defer indexFile.Close()
				data, err := io.ReadAll(indexFile)
				if err != nil {
					s.log.Error().Err(err).Msg("Failed to read embedded index.html")
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				if _, err := w.Write(data); err != nil {
					s.log.Error().Err(err).Msg("Failed to write index.html response")
				}
			} else {
				http.NotFound(w, r)
			}
		})
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// assetsHandler wraps the file server to set correct MIME types
func (s *Server) assetsHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := filepath.Ext(r.URL.Path)

		contentType := mime.TypeByExtension(ext)
		if contentType == "" {
			// Fallback for common extensions
			switch ext {
			case ".js", ".mjs":
				contentType = "application/javascript"
			case ".css":
				contentType = "text/css"
			case ".json":
				contentType = "application/json"
			case ".woff", ".woff2":
				contentType = "font/woff2"
			case ".ttf":
				contentType = "font/ttf"
			case ".svg":
				contentType = "image/svg+xml"
			default:
				contentType = "application/octet-stream"
			}
		}

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}

		next.ServeHTTP(w, r)
	})
}

// handleDashboard serves the main dashboard HTML from embedded filesystem
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	frontendFS, err := fs.Sub(embedded.Files, "frontend/dist")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create frontend filesystem from embedded files")
		http.Error(w, "Frontend not available", http.StatusInternalServerError)
		return
	}

	indexFile, err := frontendFS.Open("index.html")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to open embedded index.html")
		http.Error(w, "Frontend not available", http.StatusInternalServerError)
		return
	}
	defer indexFile.Close()

	data, err := io.ReadAll(indexFile)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read embedded index.html")
		http.Error(w, "Frontend not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to write index.html response")
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
