package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ptkach/nomulus/pkg/platform/httputil"
	"github.com/ptkach/nomulus/pkg/requestcontext"
)

// PerRegistrar limits requests by the registrar id in header. Requests
// without one are limited by the client address recorded by the metadata
// middleware. Limiter faults let the request through.
func PerRegistrar(limiter Limiter, header string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := strings.TrimSpace(r.Header.Get(header))
			if key == "" {
				key = "ip:" + requestcontext.ClientIP(ctx)
			}

			res, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "rate limit check failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retry := int(math.Ceil(res.RetryAfter(time.Now()).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorBody{
					Error:       "rate_limit_exceeded",
					Description: "too many commands, retry later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
