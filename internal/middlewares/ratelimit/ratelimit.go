// Package ratelimit provides per-IP request throttling: a general limiter
// backed by shared fiber storage for all API traffic, and an in-process
// token-bucket limiter for the login endpoint.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"golang.org/x/time/rate"

	"github.com/haulerhq/freightdesk/params"
)

// New returns the general per-IP limiter for the whole API surface. The
// storage backend is shared across instances so the budget holds per client,
// not per replica.
func New(storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        params.RequestRateLimitMax,
		Expiration: params.RequestRateLimitWindow,
		Storage:    storage,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			return ctx.IP()
		},
		LimitReached: func(ctx *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		},
	})
}

// loginLimiterMaxEntries caps the per-IP map. The worker resets the whole map
// once it is crossed, which also frees buckets for IPs that never come back.
const loginLimiterMaxEntries = 10000

// LoginLimiter throttles login attempts per client IP with a token bucket.
// It sits in front of the credential check so floods never reach the
// database.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewLoginLimiter(perMinute int) *LoginLimiter {
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim.Allow()
}

// StartCleanupWorker periodically drops idle limiters so the per-IP map does
// not grow without bound.
func (l *LoginLimiter) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			if len(l.limiters) > loginLimiterMaxEntries {
				l.limiters = make(map[string]*rate.Limiter)
			}
			l.mu.Unlock()
		}
	}
}

func (l *LoginLimiter) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if !l.Allow(ctx.IP()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many login attempts")
		}
		return ctx.Next()
	}
}
