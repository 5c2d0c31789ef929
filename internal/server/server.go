// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "vibeu/docs" // swagger docs
	"vibeu/internal/bootstrap"
	"vibeu/internal/config"
	"vibeu/internal/messaging"
	"vibeu/internal/middleware"
	"vibeu/internal/models"
	"vibeu/internal/notifications"
	"vibeu/internal/objectstore"
	"vibeu/internal/repository"
	"vibeu/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	presence    *notifications.Presence
	presenceCfg notifications.PresenceConfig
	hub         *notifications.Hub
	notifier    *notifications.Notifier
	exporter    *messaging.Exporter
	avatars     service.ObjectStore
	events      *service.EventBus

	profileService      *service.ProfileService
	interactionService  *service.InteractionService
	feedService         *service.FeedService
	notificationService *service.NotificationService
}

// Option configures optional collaborators of a Server.
type Option func(*Server)

// WithExporter mirrors domain events to the message bus.
func WithExporter(e *messaging.Exporter) Option {
	return func(s *Server) { s.exporter = e }
}

// WithAvatarStore sets the object store used for avatar uploads.
func WithAvatarStore(store service.ObjectStore) Option {
	return func(s *Server) { s.avatars = store }
}

// WithPresenceConfig overrides presence timing and Redis keys.
func WithPresenceConfig(cfg notifications.PresenceConfig) Option {
	return func(s *Server) { s.presenceCfg = cfg }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Redis is optional; without it the server runs single-instance.
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedPreset: cfg.DevSeedPreset})
	if err != nil {
		return nil, err
	}

	var opts []Option
	if cfg.NATSURL != "" {
		exporter, err := messaging.Connect(cfg.NATSURL)
		if err != nil {
			middleware.Logger.Warn("NATS unavailable, event export disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, WithExporter(exporter))
		}
	}
	if cfg.S3Bucket != "" {
		store, err := objectstore.NewS3(objectstore.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		opts = append(opts, WithAvatarStore(store))
	}

	return NewServerWithDeps(cfg, db, redisClient, opts...)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("vibeu-api"),
	}
	for _, opt := range opts {
		opt(server)
	}

	repoOpts := []repository.Option{repository.WithStoreTimeout(cfg.StoreTimeout())}
	profileRepo := repository.NewProfileRepository(db, repoOpts...)
	postRepo := repository.NewPostRepository(db, repoOpts...)
	likeRepo := repository.NewLikeRepository(db, repoOpts...)
	commentRepo := repository.NewCommentRepository(db, repoOpts...)
	notificationRepo := repository.NewNotificationRepository(db, repoOpts...)

	server.presence = notifications.NewPresence(redisClient, server.presenceCfg)
	server.hub = notifications.NewHub(notifications.HubConfig{
		SubscriberBuffer: cfg.HubSubscriberBuffer,
		MaxConnsPerUser:  cfg.HubMaxConnsPerUser,
		MaxTotalConns:    cfg.HubMaxTotalConns,
	}, server.presence)
	server.notifier = notifications.NewNotifier(redisClient, server.hub)
	server.presence.SetOnChange(server.announcePresence)

	server.notificationService = service.NewNotificationService(notificationRepo, postRepo, profileRepo, server.notifier)
	server.events = service.NewEventBus()
	server.events.Register("notifications", server.notificationService)
	if server.exporter != nil {
		server.events.Register("nats", server.exporter)
		server.notificationService.Observe(server.exporter)
	}

	server.profileService = service.NewProfileService(profileRepo, server.hub, server.avatars, int64(cfg.AvatarMaxSizeMB)<<20)
	server.interactionService = service.NewInteractionService(postRepo, likeRepo, commentRepo, profileRepo, server.events)
	server.feedService = service.NewFeedService(postRepo, profileRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")

	// Websocket upgrade authenticates from the query string
	api.Get("/ws", middleware.WebSocketAuthRequired, middleware.ContextMiddleware(), s.requireUpgrade, s.NotificationsWebSocket())

	protected := api.Group("", middleware.AuthRequired, middleware.ContextMiddleware())

	// Profile routes; /me must come before /:id
	profiles := protected.Group("/profiles")
	profiles.Get("/me", s.GetMyProfile)
	profiles.Put("/me", s.UpsertMyProfile)
	profiles.Patch("/me", s.UpdateMyProfile)
	profiles.Post("/me/avatar", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "avatar_upload"), s.UploadMyAvatar)
	profiles.Get("/:id/posts", s.GetProfilePosts)
	profiles.Get("/:id", s.GetProfile)

	protected.Get("/feed", s.GetFeed)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", middleware.RateLimit(
		s.redis, 60, time.Minute, "toggle_like"), s.ToggleLike)
	posts.Get("/:id/comments", s.ListComments)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.GetPost)

	protected.Get("/presence", s.GetOnlineUsers)

	notificationRoutes := protected.Group("/notifications")
	notificationRoutes.Get("/", s.GetNotifications)
	notificationRoutes.Get("/unread-count", s.GetUnreadCount)
	notificationRoutes.Post("/seen", s.MarkNotificationsSeen)
}

// LivenessCheck handles GET /health/live
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles GET /health/ready. Redis is optional: a
// missing client reports "disabled" and does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds a Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "vibeu API",
		BodyLimit: (s.config.AvatarMaxSizeMB + 1) << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			return s.respondError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the realtime subscribers and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.notifier.Start(s.shutdownCtx); err != nil {
		middleware.Logger.Error("failed to start notification subscriber; delivery stays local",
			slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Close WebSocket subscriptions gracefully
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if s.exporter != nil {
		s.exporter.Close()
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
