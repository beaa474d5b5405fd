package limiter

import (
	"encoding/json"
	"net/http"
	"time"
)

// Standard rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Decision is the outcome of a single rate limit check. It is derived from
// the counter state on every check and never stored.
type Decision struct {
	// Allowed reports whether the request fits inside the limit.
	Allowed bool `json:"allowed"`

	// Limit is the configured maximum for the window.
	Limit int `json:"limit"`

	// Remaining is how many requests are left in the current window,
	// never negative.
	Remaining int `json:"remaining"`

	// ResetAt is when the current window ends and capacity frees up.
	ResetAt time.Time `json:"reset_at"`

	// RetryAfter is how long a denied caller should wait before retrying,
	// rounded up to whole seconds. Zero when Allowed.
	RetryAfter time.Duration `json:"retry_after"`
}

// newDecision derives a Decision from an observed count. A count equal to
// the limit is still allowed; only the first count beyond it is denied.
func newDecision(count int64, limit int, resetAt, now time.Time) Decision {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}

	decision := Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}

	if !decision.Allowed {
		retry := ceilSeconds(resetAt.Sub(now))
		if retry < time.Second {
			retry = time.Second
		}
		decision.RetryAfter = retry
	}

	return decision
}

// ceilSeconds rounds d up to a whole number of seconds. Non-positive
// durations are returned unchanged.
func ceilSeconds(d time.Duration) time.Duration {
	if rem := d % time.Second; rem > 0 {
		d += time.Second - rem
	}
	return d
}

// unixCeil is t as seconds since epoch, rounded up.
func unixCeil(t time.Time) int64 {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return secs
}

// Denial is the response artifact returned to a caller that went over the
// limit. The default carries a 429 with a JSON body; Config.OnLimitReached
// can replace it.
type Denial struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// DenialBody is the JSON payload of the default denial response.
type DenialBody struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retryAfter"`
}

func defaultDenial(decision Decision) *Denial {
	body, _ := json.Marshal(DenialBody{
		Error:      "Rate limit exceeded",
		RetryAfter: int64(decision.RetryAfter / time.Second),
	})

	return &Denial{
		StatusCode:  http.StatusTooManyRequests,
		ContentType: "application/json",
		Body:        body,
	}
}
