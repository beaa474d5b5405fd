package limiter

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// KeyFunc derives the identifier a request is counted under. Returning ""
// means the request cannot be identified; the middleware lets such requests
// through uncounted.
type KeyFunc func(r *http.Request) string

// IPKey extracts the client IP address for rate limiting. It prefers the
// first entry of X-Forwarded-For, then X-Real-IP, then the connection's
// remote address with any port stripped.
func IPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// The first address is the original client; the rest are proxies.
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// EndpointKey creates a key based on the request endpoint.
func EndpointKey(r *http.Request) string {
	return fmt.Sprintf("%s:%s", r.Method, r.URL.Path)
}

// CombinedKey creates a key combining client IP and endpoint, for per-client
// per-endpoint limits.
func CombinedKey(r *http.Request) string {
	return fmt.Sprintf("%s:%s", IPKey(r), EndpointKey(r))
}

// JWTSubjectKey returns a KeyFunc that counts requests per token subject.
// The bearer token must be HMAC-signed with secret; anything else (missing
// header, bad signature, wrong algorithm, empty subject) falls back to the
// given KeyFunc, or IPKey when fallback is nil.
func JWTSubjectKey(secret string, fallback KeyFunc) KeyFunc {
	if fallback == nil {
		fallback = IPKey
	}

	return func(r *http.Request) string {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return fallback(r)
		}

		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return fallback(r)
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return fallback(r)
		}
		return fmt.Sprintf("user:%s", sub)
	}
}
