package middleware

import (
	"context"
	"net/http"

	"github.com/lucsky/cuid"

	"rate-gate/internal/common/logging"
)

// RequestIDHeader is the header the request id is read from and echoed to.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with a correlation id. An id
// supplied by the caller is kept, otherwise a new one is generated. The id
// is echoed on the response and stored in the request context where
// logging.WithContext picks it up.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = cuid.New()
		}

		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
