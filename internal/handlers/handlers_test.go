package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rate-gate/internal/config"
	"rate-gate/internal/limiter"
	"rate-gate/internal/store/memory"
)

func newTestHandlers(t *testing.T, limit int) *Handlers {
	t.Helper()

	s := memory.New(nil)

	l, err := limiter.New(&limiter.Config{Limit: limit, Window: time.Minute, Store: s})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	return New(s, l, config.Load())
}

// newTestRouter registers the handlers the way the application does, so
// mux.Vars sees the same path variables.
func newTestRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/admin/quota/{identifier}", h.GetQuota).Methods("GET")
	router.HandleFunc("/admin/quota/{identifier}", h.ResetQuota).Methods("DELETE")
	router.HandleFunc("/api/ping", h.Ping).Methods("GET")
	return router
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandlers(t, 5)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestGetQuota(t *testing.T) {
	h := newTestHandlers(t, 5)
	router := newTestRouter(h)
	ctx := context.Background()

	// Consume two units directly through the limiter.
	for i := 0; i < 2; i++ {
		_, err := h.limiter.Check(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/quota/10.0.0.1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10.0.0.1", body["identifier"])
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, float64(3), body["remaining"])

	// Reading quota does not consume it.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/quota/10.0.0.1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["remaining"])
}

func TestGetQuotaBlockedIdentifier(t *testing.T) {
	h := newTestHandlers(t, 1)
	router := newTestRouter(h)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.limiter.Check(ctx, "10.0.0.2")
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/quota/10.0.0.2", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, float64(0), body["remaining"])
	assert.GreaterOrEqual(t, body["retry_after_seconds"], float64(1))
}

func TestResetQuota(t *testing.T) {
	h := newTestHandlers(t, 1)
	router := newTestRouter(h)
	ctx := context.Background()

	_, err := h.limiter.Check(ctx, "10.0.0.3")
	require.NoError(t, err)
	d, err := h.limiter.Check(ctx, "10.0.0.3")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/quota/10.0.0.3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	d, err = h.limiter.Check(ctx, "10.0.0.3")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "reset identifier starts a fresh window")
}

func TestPing(t *testing.T) {
	h := newTestHandlers(t, 5)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
}
