package limiter

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecision(t *testing.T) {
	now := time.Unix(1700000000, 0)
	resetAt := now.Add(42 * time.Second)

	t.Run("allowed under the limit", func(t *testing.T) {
		d := newDecision(3, 5, resetAt, now)

		assert.True(t, d.Allowed)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, 2, d.Remaining)
		assert.True(t, d.ResetAt.Equal(resetAt))
		assert.Equal(t, time.Duration(0), d.RetryAfter)
	})

	t.Run("the limit-th request is still allowed", func(t *testing.T) {
		d := newDecision(5, 5, resetAt, now)

		assert.True(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, time.Duration(0), d.RetryAfter)
	})

	t.Run("denied one past the limit", func(t *testing.T) {
		d := newDecision(6, 5, resetAt, now)

		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, 42*time.Second, d.RetryAfter)
	})

	t.Run("retry after rounds up to whole seconds", func(t *testing.T) {
		d := newDecision(6, 5, now.Add(41*time.Second+300*time.Millisecond), now)

		assert.Equal(t, 42*time.Second, d.RetryAfter)
	})

	t.Run("retry after never drops below one second", func(t *testing.T) {
		d := newDecision(6, 5, now.Add(-5*time.Second), now)

		assert.False(t, d.Allowed)
		assert.Equal(t, time.Second, d.RetryAfter)
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		d := newDecision(20, 5, resetAt, now)

		assert.Equal(t, 0, d.Remaining)
	})
}

func TestCeilSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{90 * time.Second, 90 * time.Second},
		{90*time.Second + time.Millisecond, 91 * time.Second},
		{time.Millisecond, time.Second},
		{1500 * time.Millisecond, 2 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ceilSeconds(tt.in), "ceilSeconds(%s)", tt.in)
	}
}

func TestUnixCeil(t *testing.T) {
	base := time.Unix(1700000000, 0)

	assert.Equal(t, int64(1700000000), unixCeil(base))
	assert.Equal(t, int64(1700000001), unixCeil(base.Add(time.Nanosecond)))
	assert.Equal(t, int64(1700000001), unixCeil(base.Add(999*time.Millisecond)))
}

func TestDefaultDenial(t *testing.T) {
	denial := defaultDenial(Decision{Limit: 5, RetryAfter: 30 * time.Second})

	assert.Equal(t, http.StatusTooManyRequests, denial.StatusCode)
	assert.Equal(t, "application/json", denial.ContentType)

	var body DenialBody
	require.NoError(t, json.Unmarshal(denial.Body, &body))
	assert.Equal(t, "Rate limit exceeded", body.Error)
	assert.Equal(t, int64(30), body.RetryAfter)
}
