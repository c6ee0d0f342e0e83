package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"todoapi/internal/adapter/http/helper"
	"todoapi/internal/adapter/logger"
	"todoapi/internal/core/telemetry"
)

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type RateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

// RateLimiter is a fixed-window limiter keyed by route template and client
// IP. Counters live in process, so each replica limits independently.
type RateLimiter struct {
	cache   *cache.Cache
	config  RateLimitConfig
	logger  *logger.LokiLogger
	metrics *telemetry.AppMetrics
	mutex   sync.Mutex
	now     func() time.Time
}

func NewRateLimiter(config RateLimitConfig, lokiLogger *logger.LokiLogger, metrics *telemetry.AppMetrics) *RateLimiter {
	return &RateLimiter{
		cache:   cache.New(config.Window, 2*config.Window),
		config:  config,
		logger:  lokiLogger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()

		if route == "" {
			route = unmatchedRoute
		}

		key := "rate_limit:" + c.Request.Method + " " + route + ":" + c.ClientIP()

		allowed, remaining, resetTime := rl.checkRateLimit(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		ctx := c.Request.Context()

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(ctx, route)
			}

			rl.logger.Warn(ctx, "Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", rl.config.Requests),
				zap.Duration("window", rl.config.Window),
			)

			retryAfter := int(resetTime.Sub(rl.now()).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			helper.SendStatus(c, http.StatusTooManyRequests, helper.MessageTooManyRequests)

			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimitAllowed(ctx, route)
		}

		c.Next()
	}
}

func (rl *RateLimiter) checkRateLimit(key string) (bool, int, time.Time) {
	now := rl.now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if item, found := rl.cache.Get(key); found {
		entry := item.(RateLimitEntry)

		if now.Before(entry.ResetTime) {
			if entry.Count >= rl.config.Requests {
				return false, 0, entry.ResetTime
			}

			entry.Count++
			rl.cache.Set(key, entry, entry.ResetTime.Sub(now))

			return true, rl.config.Requests - entry.Count, entry.ResetTime
		}
	}

	resetTime := now.Add(rl.config.Window)
	rl.cache.Set(key, RateLimitEntry{Count: 1, ResetTime: resetTime}, rl.config.Window)

	return true, rl.config.Requests - 1, resetTime
}
