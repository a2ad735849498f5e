package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/habitguard/study-server/internal/audit"
	"github.com/habitguard/study-server/internal/config"
	apperrors "github.com/habitguard/study-server/internal/errors"
)

// rateWindow is the sliding window every limit is expressed in.
const rateWindow = time.Minute

// Quota is one limiter decision.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter admits at most limit requests per bucket within rateWindow.
type Limiter interface {
	Allow(ctx context.Context, bucket string, limit int) Quota
}

// BucketFunc names the bucket a request counts against. An empty bucket
// skips limiting.
type BucketFunc func(r *http.Request) string

// ByUser buckets authenticated requests per user and must run after auth.
func ByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return ""
}

// ByIP buckets requests per client address within scope. It runs before auth
// so token guessing is throttled too.
func ByIP(scope string) BucketFunc {
	return func(r *http.Request) string {
		return "ip:" + scope + ":" + clientIP(r)
	}
}

// RateLimit answers 429 once a bucket exceeds limitPerMin.
func RateLimit(limiter Limiter, limitPerMin int, bucketOf BucketFunc) func(http.Handler) http.Handler {
	if limitPerMin <= 0 {
		limitPerMin = config.DefaultRateLimitPerMin
	}
	limit := strconv.Itoa(limitPerMin)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := bucketOf(r)
			if bucket == "" {
				next.ServeHTTP(w, r)
				return
			}

			q := limiter.Allow(r.Context(), bucket, limitPerMin)
			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(q.ResetAt.Unix(), 10))

			if !q.Allowed {
				audit.RecordRequest(r, audit.Event{
					Type:   audit.EventRateLimitExceed,
					UserID: GetUserID(r.Context()),
					Fields: map[string]any{"bucket": bucket},
				})
				h.Set("Retry-After", strconv.Itoa(retryAfter(q.ResetAt)))
				writeError(w, apperrors.RateLimitExceeded())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(resetAt time.Time) int {
	secs := int(time.Until(resetAt).Seconds()) + 1
	if secs < 1 || secs > int(rateWindow.Seconds()) {
		return int(rateWindow.Seconds())
	}
	return secs
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already rewritten from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
