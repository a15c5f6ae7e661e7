package middleware

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimit is a fixed-window limiter keyed by client address, counted in
// Redis so it holds across instances.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "rate_limit:" + r.RemoteAddr

			current, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Limiter outage must not take requests down with it.
				log.WithError(err).Warn("rate limiter unavailable, letting request through")
				next.ServeHTTP(w, r)
				return
			}

			if current == 1 {
				rdb.Expire(ctx, key, window)
			}

			if current > int64(limit) {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
