package token

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytescript/bytescript-rtc/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		CleanupInterval:   5 * time.Minute,
	}
}

type rateLimiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	config   RateLimiterConfig
}

func newRateLimiterStore(cfg RateLimiterConfig) *rateLimiterStore {
	store := &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
	go store.cleanupLoop()
	return store
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.Burst)
	s.limiters[key] = limiter
	return limiter
}

func (s *rateLimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		for key := range s.limiters {
			delete(s.limiters, key)
		}
		s.mu.Unlock()
	}
}

// RateLimiter bounds token minting per client IP so a single client cannot
// farm tokens faster than they can plausibly be consumed.
func RateLimiter(cfg RateLimiterConfig) echo.MiddlewareFunc {
	store := newRateLimiterStore(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := store.getLimiter(c.RealIP())
			if !limiter.Allow() {
				return shared.ErrorJSON(c, http.StatusTooManyRequests, "rate_limit_exceeded")
			}

			return next(c)
		}
	}
}
