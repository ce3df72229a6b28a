// Package server contains the HTTP handlers and the service context that owns
// the stores behind them.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minitweet/internal/cache"
	"minitweet/internal/config"
	"minitweet/internal/database"
	"minitweet/internal/middleware"
	"minitweet/internal/notifications"
	"minitweet/internal/observability"
	"minitweet/internal/repository"
	"minitweet/internal/seed"
	"minitweet/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	store           *repository.MemoryStore
	cache           *cache.Cache
	notifier        *notifications.Notifier
	promMiddleware  *fiberprometheus.FiberPrometheus
	tracingShutdown func(context.Context) error

	userService     *service.UserService
	followService   *service.FollowService
	tweetService    *service.TweetService
	timelineService *service.TimelineService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	observability.Configure(cfg.LogLevel, cfg.LogFormat)

	tracingShutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "minitweet",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing initialization failed: %w", err)
	}

	var (
		db    *gorm.DB
		store *repository.MemoryStore
		users repository.UserRepository
		posts repository.TweetRepository
	)
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err = database.OpenMemory(cfg.SQLiteName)
		if err != nil {
			_ = tracingShutdown(context.Background())
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		users = repository.NewGormUserRepository(db)
		posts = repository.NewGormTweetRepository(db)
	default:
		store = repository.NewMemoryStore()
		users = repository.NewMemoryUserRepository(store)
		posts = repository.NewMemoryTweetRepository(store)
	}

	server := NewServerWithDeps(cfg, users, posts, cache.Connect(cfg.RedisURL))
	server.db = db
	server.store = store
	server.tracingShutdown = tracingShutdown

	if cfg.SeedUsers > 0 {
		if _, err := server.Seed(context.Background(), seed.Options{
			NumUsers:       cfg.SeedUsers,
			TweetsPerUser:  cfg.SeedTweetsPerUser,
			FollowsPerUser: cfg.SeedFollowsPerUser,
			MaxTweetLength: cfg.MaxTweetLength,
		}); err != nil {
			_ = server.Shutdown(context.Background())
			return nil, fmt.Errorf("seeding failed: %w", err)
		}
	}
	return server, nil
}

// Seed fills the store with demo data through the services.
func (s *Server) Seed(ctx context.Context, opts seed.Options) (*seed.Result, error) {
	return seed.Run(ctx, seed.Services{
		Users:   s.userService,
		Follows: s.followService,
		Tweets:  s.tweetService,
	}, opts)
}

// NewServerWithDeps creates a Server using already-initialized repositories.
// redisClient may be nil, which disables the profile cache and notifications.
func NewServerWithDeps(
	cfg *config.Config,
	userRepo repository.UserRepository,
	tweetRepo repository.TweetRepository,
	redisClient *redis.Client,
) *Server {
	server := &Server{
		config:         cfg,
		cache:          cache.New(redisClient, "minitweet:"+uuid.NewString()),
		notifier:       notifications.NewNotifier(redisClient),
		promMiddleware: middleware.InitMetrics("minitweet"),
	}

	server.userService = service.NewUserService(userRepo, server.cache, cfg.BcryptCost,
		time.Duration(cfg.ProfileCacheTTLSeconds)*time.Second)

	// Without Redis there is nobody to deliver to, so skip the follower lookups.
	var publisher service.EventPublisher
	if redisClient != nil {
		publisher = server.notifier
	}
	server.followService = service.NewFollowService(userRepo, publisher)
	server.tweetService = service.NewTweetService(tweetRepo, userRepo, publisher, cfg.MaxTweetLength)
	server.timelineService = service.NewTimelineService(userRepo, tweetRepo)

	return server
}

// FiberConfig returns the Fiber settings the API is served with.
func FiberConfig() fiber.Config {
	return fiber.Config{
		AppName:      "minitweet",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	// Tracing runs before the context middleware so the trace id reaches logs.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/ping", s.Ping)
	app.Get("/health", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Post("/sign-up", s.SignUp)
	app.Get("/users", s.ListUsers)
	app.Get("/user/:id", s.GetUser)
	app.Put("/user/:id", s.UpdateUser)

	app.Post("/follow", s.Follow)
	app.Post("/unfollow", s.Unfollow)

	app.Get("/tweets", s.ListTweets)
	app.Post("/tweet", s.PostTweet)
	app.Delete("/tweet", s.DeleteTweet)
	// Define specific /:tweetId/:action routes BEFORE generic /:tweetId route
	app.Post("/tweet/:tweetId/like", s.LikeTweet)
	app.Post("/tweet/:tweetId/unlike", s.UnlikeTweet)
	app.Get("/tweet/:tweetId", s.GetTweet)
	app.Delete("/tweet/:tweetId", s.DeleteTweetByID)

	app.Get("/timeline/:id", s.GetTimeline)
}

// Ping is the liveness check.
func (s *Server) Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// HealthCheck reports store and Redis readiness.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if s.db != nil {
		if err := database.Ping(ctx, s.db); err != nil {
			storeStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.cache.Enabled() {
		redisStatus = "healthy"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	// Redis is optional; only a failing store makes the service unready.
	status := fiber.StatusOK
	overall := "healthy"
	if storeStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	driver := config.StoreMemory
	if s.config != nil && s.config.StoreDriver != "" {
		driver = s.config.StoreDriver
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"store_driver": driver,
		"time":         time.Now().UTC(),
	})
}

// WatchNotifications logs every event delivered on user channels until ctx is
// cancelled. It does nothing without Redis.
func (s *Server) WatchNotifications(ctx context.Context) error {
	return s.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		observability.Logger.DebugContext(ctx, "notification delivered",
			"channel", channel, "payload", payload)
	})
}

// Shutdown releases the stores, the Redis client and the tracer. All state
// held by the server is gone afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close memory store: %w", err))
		}
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if s.tracingShutdown != nil {
		if err := s.tracingShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}

	return errors.Join(errs...)
}
