package limiter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rate-gate/internal/common/errors"
	"rate-gate/internal/common/logging"
	"rate-gate/internal/store"
	"rate-gate/internal/store/memory"
)

// Window algorithm selectors.
const (
	AlgorithmFixedWindow   = "fixed-window"
	AlgorithmSlidingWindow = "sliding-window"
)

// Defaults applied by Config.Validate for unset fields.
const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
	DefaultPrefix = "rl"
)

// Config configures a Limiter. The zero value is usable: every unset field
// gets its default. Configuration is fixed at construction; build a new
// Limiter to change it.
type Config struct {
	// Limit is the maximum number of requests per window.
	Limit int `json:"limit"`

	// Window is the length of the counting window.
	Window time.Duration `json:"window"`

	// Algorithm selects fixed-window or sliding-window counting.
	Algorithm string `json:"algorithm"`

	// Prefix namespaces this limiter's keys inside the store, so several
	// limiters can share one backend without colliding.
	Prefix string `json:"prefix"`

	// Store holds the counters. Defaults to a fresh in-memory store.
	Store store.Store `json:"-"`

	// KeyFunc derives the identifier a request is counted under.
	// Defaults to IPKey.
	KeyFunc KeyFunc `json:"-"`

	// OnLimitReached, when set, can replace the default 429 response for a
	// denied request. Returning nil keeps the default.
	OnLimitReached func(r *http.Request, decision Decision) *Denial `json:"-"`

	// SkipHeaders disables stamping of the X-RateLimit-* headers.
	SkipHeaders bool `json:"skip_headers"`
}

// Validate applies defaults and rejects values that make no sense. Zero
// means unset and gets the default; explicit negatives are an error, never
// silently clamped.
func (c *Config) Validate() error {
	if c.Limit < 0 {
		return errors.ValidationError(fmt.Sprintf("rate limit must be positive, got %d", c.Limit))
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}

	if c.Window < 0 {
		return errors.ValidationError(fmt.Sprintf("rate window must be positive, got %s", c.Window))
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}

	switch c.Algorithm {
	case "":
		c.Algorithm = AlgorithmFixedWindow
	case AlgorithmFixedWindow, AlgorithmSlidingWindow:
	default:
		return errors.ValidationError(fmt.Sprintf("unknown rate limit algorithm: %s", c.Algorithm))
	}

	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.KeyFunc == nil {
		c.KeyFunc = IPKey
	}

	return nil
}

// Limiter dispatches checks to the configured algorithm and packages the
// result into a decision plus response-shaping artifacts. It is stateless
// between calls; all counter state lives in the store.
type Limiter struct {
	config *Config
	store  store.Store
	algo   algorithm
	logger logging.Logger
	now    func() time.Time
}

// Evaluation is the full outcome of checking one HTTP request.
type Evaluation struct {
	// Decision is the admission decision for this request.
	Decision Decision

	// Denial is the response to send when the request is denied, nil when
	// it is allowed.
	Denial *Denial

	// ApplyHeaders stamps the rate limit headers onto an outgoing
	// response. A no-op when Config.SkipHeaders is set.
	ApplyHeaders func(h http.Header)
}

// New creates a Limiter. A nil config gets all defaults, including a fresh
// in-memory store.
func New(config *Config) (*Limiter, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Store == nil {
		config.Store = memory.New(nil)
	}

	l := &Limiter{
		config: config,
		store:  config.Store,
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "limiter")),
		now:    time.Now,
	}

	switch config.Algorithm {
	case AlgorithmSlidingWindow:
		l.algo = &slidingWindow{store: config.Store, limit: config.Limit, window: config.Window}
	default:
		l.algo = &fixedWindow{store: config.Store, limit: config.Limit, window: config.Window}
	}

	return l, nil
}

// Check consumes one unit of quota for identifier and reports the resulting
// decision. Store failures propagate unwrapped; retry and fail-open policy
// belong to the caller.
func (l *Limiter) Check(ctx context.Context, identifier string) (Decision, error) {
	key := fmt.Sprintf("%s:%s", l.config.Prefix, identifier)
	return l.algo.check(ctx, key, l.now())
}

// Inspect reports the current state for identifier without consuming quota.
// A Decision with Allowed false means the identifier's next request would be
// denied right now.
func (l *Limiter) Inspect(ctx context.Context, identifier string) (Decision, error) {
	key := fmt.Sprintf("%s:%s", l.config.Prefix, identifier)
	return l.algo.inspect(ctx, key, l.now())
}

// Reset clears identifier's counters, granting it a fresh window.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	key := fmt.Sprintf("%s:%s", l.config.Prefix, identifier)
	return l.algo.reset(ctx, key, l.now())
}

// ResolveKey derives the identifier the request would be counted under.
func (l *Limiter) ResolveKey(r *http.Request) string {
	return l.config.KeyFunc(r)
}

// Evaluate runs the full pipeline for one request: resolve the identifier,
// check it, and package the decision with a denial artifact (when denied)
// and a header applier.
func (l *Limiter) Evaluate(ctx context.Context, r *http.Request) (Evaluation, error) {
	return l.evaluate(ctx, r, l.ResolveKey(r))
}

func (l *Limiter) evaluate(ctx context.Context, r *http.Request, identifier string) (Evaluation, error) {
	decision, err := l.Check(ctx, identifier)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		Decision:     decision,
		ApplyHeaders: l.headerApplier(decision),
	}
	if !decision.Allowed {
		ev.Denial = l.denialFor(r, decision)
	}

	return ev, nil
}

// denialFor picks the denial artifact for a denied request. An override
// that returns nil or panics falls through to the default; the pipeline
// always produces a usable artifact.
func (l *Limiter) denialFor(r *http.Request, decision Decision) *Denial {
	if l.config.OnLimitReached != nil {
		if denial := l.callOverride(r, decision); denial != nil {
			return denial
		}
	}
	return defaultDenial(decision)
}

func (l *Limiter) callOverride(r *http.Request, decision Decision) (denial *Denial) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Warn("limit reached handler panicked", logging.Any("panic", rec))
			denial = nil
		}
	}()
	return l.config.OnLimitReached(r, decision)
}

func (l *Limiter) headerApplier(decision Decision) func(h http.Header) {
	if l.config.SkipHeaders {
		return func(http.Header) {}
	}

	return func(h http.Header) {
		h.Set(HeaderLimit, fmt.Sprintf("%d", decision.Limit))
		h.Set(HeaderRemaining, fmt.Sprintf("%d", decision.Remaining))
		h.Set(HeaderReset, fmt.Sprintf("%d", unixCeil(decision.ResetAt)))
		if !decision.Allowed {
			h.Set(HeaderRetryAfter, fmt.Sprintf("%d", int64(decision.RetryAfter/time.Second)))
		}
	}
}

// Close releases the underlying store's resources.
func (l *Limiter) Close() error {
	return l.store.Close()
}
