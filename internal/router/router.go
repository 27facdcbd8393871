package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anonto42/inkwell/backend/internal/cache"
	"github.com/anonto42/inkwell/backend/internal/handlers"
	"github.com/anonto42/inkwell/backend/internal/middleware"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"github.com/anonto42/inkwell/backend/internal/search"
	"github.com/anonto42/inkwell/backend/internal/services"
	"github.com/anonto42/inkwell/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes and injects dependencies.
// verifier may be nil when Google sign-in is not configured.
func SetupRoutes(ctx context.Context, e *echo.Echo, db *config.DB, cfg *config.Config, verifier services.IDTokenVerifier, log *zap.Logger) error {
	// --- Initialize Repositories ---
	blogRepo := repositories.NewMongoBlogRepository(db.MongoDB)
	commentRepo := repositories.NewMongoCommentRepository(db.MongoDB)
	userRepo := repositories.NewMongoUserRepository(db.MongoDB)
	txRunner := repositories.NewMongoTxRunner(db.Mongo, cfg.MongoTransactions)

	for name, idx := range map[string]interface {
		EnsureIndexes(ctx context.Context) error
	}{"blogs": blogRepo, "comments": commentRepo, "users": userRepo} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	log.Info("MongoDB indexes ensured")

	notificationRepo := repositories.NewNopNotificationRepository()
	if db.Postgres != nil {
		if err := db.Postgres.AutoMigrate(&models.Notification{}); err != nil {
			return fmt.Errorf("failed to auto migrate models: %w", err)
		}
		notificationRepo = repositories.NewPostgresNotificationRepository(db.Postgres)
		log.Info("PostgreSQL auto-migrations completed")
	}

	var trendingCache cache.TrendingCache
	if db.Redis != nil {
		trendingCache = cache.NewRedisCache(db.Redis, cfg.TrendingCacheTTL)
	}

	var blogIndex search.BlogIndex
	if db.Elastic != nil {
		es := search.NewElasticSearch(db.Elastic)
		if err := es.CreateIndex(ctx); err != nil {
			log.Warn("Elasticsearch index unavailable, search falls back to MongoDB", zap.Error(err))
		} else {
			blogIndex = es
		}
	}

	// --- Services ---
	notifier := services.NewNotifier(notificationRepo, log)
	authService := services.NewAuthService(userRepo, verifier, cfg.JWTSecret, cfg.JWTTTL, log)
	userService := services.NewUserService(userRepo, blogRepo, log)
	blogService := services.NewBlogService(blogRepo, userRepo, txRunner, trendingCache, blogIndex, notifier, log)
	commentService := services.NewCommentService(commentRepo, blogRepo, userRepo, txRunner, trendingCache, notifier, log)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck(
		handlers.PingFunc(func(ctx context.Context) error { return db.Mongo.Ping(ctx, readpref.Primary()) }),
		optionalPingers(db),
	))
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Inkwell API"})
	})

	requireAuth := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(cfg.JWTSecret)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/auth", middleware.RateLimit("auth", 10, 15*time.Minute, db.Redis, log))
	handlers.NewAuthHandler(authService).RegisterAuthRoutes(authGroup)
	log.Info("Auth routes configured")

	api := e.Group("/api", middleware.RateLimit("api", 1000, time.Hour, db.Redis, log))

	// User profile routes
	profile := api.Group("/user", requireAuth)
	handlers.NewUserHandler(userService).RegisterProfileRoutes(profile)
	log.Info("User profile routes configured")

	// Blog routes mix public, optionally authenticated and protected endpoints
	handlers.NewBlogHandler(blogService).RegisterBlogRoutes(api.Group("/blog"), requireAuth, optionalAuth)
	log.Info("Blog routes configured")

	handlers.NewCommentHandler(commentService).RegisterCommentRoutes(api.Group("/comments"), requireAuth)
	log.Info("Comment routes configured")

	notifications := api.Group("/notifications", requireAuth)
	handlers.NewNotificationHandler(notificationRepo, userRepo, log).RegisterNotificationRoutes(notifications)
	log.Info("Notification routes configured")

	log.Info("All routes configured")
	return nil
}

func optionalPingers(db *config.DB) map[string]handlers.Pinger {
	pingers := map[string]handlers.Pinger{}
	if db.Postgres != nil {
		pingers["postgres"] = handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}
	if db.Redis != nil {
		pingers["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return db.Redis.Ping(ctx).Err()
		})
	}
	if db.Elastic != nil {
		pingers["elasticsearch"] = handlers.PingFunc(func(ctx context.Context) error {
			res, err := db.Elastic.Ping(db.Elastic.Ping.WithContext(ctx))
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("elasticsearch ping returned %s", res.Status())
			}
			return nil
		})
	}
	return pingers
}
