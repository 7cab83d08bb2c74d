package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/api/handler"
	"github.com/buddybox/buddybox/internal/api/middleware"
	"github.com/buddybox/buddybox/internal/core/service"
	"github.com/buddybox/buddybox/pkg/config"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	config *config.Config
	logger zerolog.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	logger zerolog.Logger,
	authService *service.AuthService,
	backupService *service.BackupService,
	processService *service.ProcessService,
	scheduleService *service.ScheduleService,
	cleanupService *service.CleanupService,
) *Server {
	// Set Gin mode
	if !cfg.IsDevMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger = logger.With().Str("component", "api").Logger()
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandlerMiddleware(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Initialize handlers
	backupHandler := handler.NewBackupHandler(backupService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	processHandler := handler.NewProcessHandler(processService)
	cleanupHandler := handler.NewCleanupHandler(cleanupService, cfg.DailyKeepCount)

	// Public routes (no auth required)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Protected routes (auth required)
	backups := api.Group("/backups")
	backups.Use(middleware.AuthMiddleware(authService, service.BackupRoles...))
	{
		create := []gin.HandlerFunc{}
		if cfg.RateLimitPerMinute > 0 {
			create = append(create, middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())
		}

		backups.GET("", backupHandler.ListBackups)
		backups.POST("/full", append(create, backupHandler.CreateFullBackup)...)
		backups.POST("/database", append(create, backupHandler.CreateDatabaseBackup)...)
		backups.POST("/config", append(create, backupHandler.CreateConfigBackup)...)
		backups.GET("/status/:id", backupHandler.GetStatus)
		backups.GET("/download/:id", backupHandler.Download)
		backups.DELETE("/:id", backupHandler.DeleteBackup)

		backups.GET("/services", backupHandler.ListServices)
		backups.GET("/databases", backupHandler.ListDatabases)

		backups.GET("/schedule", scheduleHandler.GetSchedule)
		backups.PUT("/schedule", scheduleHandler.UpdateSchedule)

		backups.GET("/processes/:id", processHandler.ListForBackup)
		backups.GET("/commands/:command_id", processHandler.GetByCommandID)

		backups.POST("/cleanup", cleanupHandler.Cleanup)
	}

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	return &Server{
		router: router,
		config: cfg,
		logger: logger,
		srv: &http.Server{
			Addr:        addr,
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Archive downloads stream for as long as they need.
			WriteTimeout:   0,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
	}
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.srv.Addr

	// Start with or without SSL
	if s.config.TLSEnabled() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTPS server")
		return s.srv.ListenAndServeTLS(s.config.SSLCert, s.config.SSLKey)
	}

	s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
