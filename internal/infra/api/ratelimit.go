package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/infra/logging"
	"ai-content-boost/internal/infra/redis"
)

// RateLimit applies a fixed window per tenant and route class. A nil limiter
// disables the check, and Redis errors fail open: admission quotas are the
// real budget, this only blunts hot polling loops.
func RateLimit(limiter *redis.RateLimiter, route string, limit int, window time.Duration, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			tenantID := TenantFrom(r.Context())
			if tenantID == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := limiter.Allow(r.Context(), redis.TenantRouteKey(tenantID, route), limit, window)
			if err != nil {
				l := logging.With(r.Context(), logger)
				l.Warn().Err(err).Msg("rate limit check failed, letting request through")
			} else if !allowed {
				writeError(w, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
