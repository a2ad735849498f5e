package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("counts down remaining", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()
		for i := 0; i < 5; i++ {
			q := limiter.Allow(ctx, "user:1", 10)
			assert.True(t, q.Allowed)
			assert.Equal(t, 10-i-1, q.Remaining)
		}
	})

	t.Run("blocks over limit", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()
		for i := 0; i < 5; i++ {
			limiter.Allow(ctx, "user:2", 5)
		}
		q := limiter.Allow(ctx, "user:2", 5)
		assert.False(t, q.Allowed)
		assert.Equal(t, 0, q.Remaining)
	})

	t.Run("buckets are independent", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()
		for i := 0; i < 5; i++ {
			limiter.Allow(ctx, "user:a", 5)
		}
		assert.True(t, limiter.Allow(ctx, "user:b", 5).Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()
		now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		first := limiter.Allow(ctx, "user:c", 1)
		assert.True(t, first.Allowed)
		assert.Equal(t, now.Add(time.Minute), first.ResetAt)
		assert.False(t, limiter.Allow(ctx, "user:c", 1).Allowed)

		now = now.Add(61 * time.Second)
		assert.True(t, limiter.Allow(ctx, "user:c", 1).Allowed)
	})
}

func TestRateLimit_ByUser(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	asUser := func(userID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/v1/study-sessions/active", nil)
		return req.WithContext(WithUserID(req.Context(), userID))
	}

	t.Run("skips anonymous requests", func(t *testing.T) {
		handler := RateLimit(NewMemoryRateLimiter(), 1, ByUser)(okHandler)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("sets headers", func(t *testing.T) {
		handler := RateLimit(NewMemoryRateLimiter(), 100, ByUser)(okHandler)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, asUser("user-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("answers 429", func(t *testing.T) {
		handler := RateLimit(NewMemoryRateLimiter(), 2, ByUser)(okHandler)
		var rec *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			rec = httptest.NewRecorder()
			handler.ServeHTTP(rec, asUser("user-2"))
		}

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", string(decodeError(t, rec).Code))
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		handler := RateLimit(NewMemoryRateLimiter(), 0, ByUser)(okHandler)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, asUser("user-3"))
		assert.Equal(t, "120", rec.Header().Get("X-RateLimit-Limit"))
	})
}

func TestRateLimit_ByIP(t *testing.T) {
	handler := RateLimit(NewMemoryRateLimiter(), 2, ByIP("api"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/study-sessions/active", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:5001").Code, "port is ignored")
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5002").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 60, retryAfter(time.Time{}))
	assert.Equal(t, 60, retryAfter(time.Now().Add(time.Hour)))
	assert.InDelta(t, 11, retryAfter(time.Now().Add(10*time.Second)), 1)
}

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	SecurityHeaders(false)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	SecurityHeaders(true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}
