// Package limiter implements rate limiting on top of the counter stores in
// internal/store, with two window algorithms and the orchestration that turns
// a raw count into an admission decision.
//
// # Basic Usage
//
// A limiter with default settings (10 requests per minute, fixed window,
// in-memory counters):
//
//	l, err := limiter.New(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer l.Close()
//
//	decision, err := l.Check(ctx, "1.2.3.4")
//	if err != nil {
//		// Counter backend failed; the caller decides fail-open vs fail-closed.
//	}
//	if !decision.Allowed {
//		// Denied. decision.RetryAfter says when capacity frees up.
//	}
//
// # Algorithms
//
// Two algorithms are available:
//
//   - AlgorithmFixedWindow: one counter per window. Cheap (one store call per
//     check) but allows up to 2x the limit across a window boundary.
//   - AlgorithmSlidingWindow: blends the current and previous window counts
//     with a linear weight, smoothing the boundary burst at the cost of one
//     extra store read per check.
//
// # Shared Counters
//
// Any store registered in internal/store can back a limiter. With the redis,
// postgres, or sqlite backends several processes share one set of counters
// and produce consistent decisions:
//
//	s, err := redisstore.New(&redisstore.Config{Address: "redis:6379"})
//	l, err := limiter.New(&limiter.Config{
//		Limit:     100,
//		Window:    time.Minute,
//		Algorithm: limiter.AlgorithmSlidingWindow,
//		Store:     s,
//	})
//
// # HTTP Integration
//
// Middleware wraps any http.Handler. Requests over the limit receive a 429
// with a JSON body and the standard X-RateLimit-* headers; if the counter
// backend fails the request is let through rather than blocked:
//
//	http.Handle("/api/", limiter.Middleware(l)(apiHandler))
//
// Identifier derivation is pluggable through Config.KeyFunc: IPKey (default),
// EndpointKey, CombinedKey, or JWTSubjectKey for per-user limits keyed on a
// token subject.
package limiter
