// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/harbourlight/conductor/internal/api"
	"github.com/harbourlight/conductor/internal/config"
	"github.com/harbourlight/conductor/internal/control"
	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/metrics"
	"github.com/harbourlight/conductor/internal/middleware"
	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/timeline"
)

// Server represents the HTTP server
type Server struct {
	config          *config.Config
	db              *db.DB
	repos           *db.Repositories
	timelineService *timeline.Service
	playoutManager  *control.PlayoutManager
	metrics         *metrics.Metrics
	router          *gin.Engine
	server          *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, database *db.DB) *Server {
	repos := db.NewRepositories(database)
	metric := metrics.New()

	versions := models.GenerationVersions{
		Core:      cfg.Playout.CoreVersion,
		Blueprint: cfg.Playout.BlueprintVersion,
		Studio:    cfg.Playout.StudioVersion,
	}
	timelineService := timeline.NewService(repos.Timelines, nil, versions)

	playoutManager := control.NewPlayoutManager(database, repos, timelineService, metric, control.Config{
		DefaultPartDuration:    cfg.Playout.DefaultPartDuration,
		LookaheadDepth:         cfg.Playout.LookaheadDepth,
		QuickLoopForceAutoNext: models.ForceQuickLoopAutoNext(cfg.Playout.QuickLoopForceAutoNext),
	})

	return &Server{
		config:          cfg,
		db:              database,
		repos:           repos,
		timelineService: timelineService,
		playoutManager:  playoutManager,
		metrics:         metric,
	}
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create new Gin router
	s.router = gin.New()

	// Add middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)

	// Prometheus scrape endpoint, outside the API group
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Create API route group
	apiGroup := s.router.Group("/api")

	// Register service routes
	api.SetupHealthRoutes(apiGroup, s.db)
	api.SetupPlaylistRoutes(apiGroup, s.repos)
	api.SetupPlayoutRoutes(apiGroup, s.playoutManager)
	api.SetupTimingRoutes(apiGroup, s.playoutManager)
	api.SetupTimelineRoutes(apiGroup, s.playoutManager)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.setupRouter()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Drain the playout job queue before closing the listener so in-flight
	// commands finish and flush
	if s.playoutManager != nil {
		s.playoutManager.Stop()
	}

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
