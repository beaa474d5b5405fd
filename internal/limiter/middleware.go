package limiter

import (
	"net/http"

	"rate-gate/internal/common/logging"
)

// Middleware wraps an http.Handler with rate limiting.
//
// Requests whose identifier cannot be resolved pass through uncounted. If
// the counter backend fails the request is also let through: a broken store
// degrades rate limiting, it does not take the service down.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.ResolveKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ev, err := l.evaluate(r.Context(), r, key)
			if err != nil {
				l.logger.Warn("rate limit check failed, allowing request",
					logging.String("key", key),
					logging.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			ev.ApplyHeaders(w.Header())

			if ev.Denial != nil {
				w.Header().Set("Content-Type", ev.Denial.ContentType)
				w.WriteHeader(ev.Denial.StatusCode)
				_, _ = w.Write(ev.Denial.Body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
