package middleware

import (
	"net/http"

	apperrors "github.com/habitguard/study-server/internal/errors"
)

// DefaultMaxBodySize fits any session, plan or stop payload with notes.
const DefaultMaxBodySize = 64 << 10

// BodyLimit rejects bodies that declare more than maxSize bytes and caps the
// rest, so a chunked upload fails inside the handler's decode.
func BodyLimit(maxSize int64) func(http.Handler) http.Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxSize {
				writeError(w, apperrors.BodyTooLarge(maxSize))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}
