package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RedisRateLimiterStore is a fixed-window limiter shared by every server instance
type RedisRateLimiterStore struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	log    *zap.Logger
}

func NewRedisRateLimiterStore(client *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RedisRateLimiterStore {
	return &RedisRateLimiterStore{client: client, prefix: prefix, limit: int64(limit), window: window, log: log}
}

// Allow counts a hit for identifier in the current window. Redis failures let the request through.
func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key := s.key(identifier, time.Now())
	pipe := s.client.TxPipeline()
	hits := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("Rate limiter store unavailable", zap.String("limiter", s.prefix), zap.Error(err))
		return true, nil
	}
	return hits.Val() <= s.limit, nil
}

func (s *RedisRateLimiterStore) key(identifier string, now time.Time) string {
	windowStart := now.UnixNano() / int64(s.window)
	return fmt.Sprintf("ratelimit:%s:%s:%d", s.prefix, identifier, windowStart)
}

// RateLimit allows limit requests per window and client IP. Counters live in Redis when a client
// is given, otherwise in process memory.
func RateLimit(name string, limit int, window time.Duration, client *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	var store echomw.RateLimiterStore
	if client != nil {
		store = NewRedisRateLimiterStore(client, name, limit, window, log)
	} else {
		store = echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Every(window / time.Duration(limit)),
			Burst:     limit,
			ExpiresIn: window,
		})
	}

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			log.Info("Rate limit exceeded", zap.String("limiter", name), zap.String("ip", identifier))
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	})
}
