package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestRecord(t *testing.T) {
	buf := captureLog(t)

	Record(context.Background(), Event{
		Type:      EventSessionConflict,
		UserID:    "user-1",
		SessionID: "sess-1",
		Fields:    map[string]any{"activeSessionId": "sess-0", "attempt": 2},
	})

	entry := decode(t, buf)
	assert.Equal(t, "session_conflict", entry["audit"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "sess-0", entry["activeSessionId"])
	assert.Equal(t, float64(2), entry["attempt"])
}

func TestRecordRequest(t *testing.T) {
	buf := captureLog(t)

	r := httptest.NewRequest("POST", "/v1/study-sessions", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	r.Header.Set("User-Agent", "studyctl")
	r = r.WithContext(context.WithValue(r.Context(), chimiddleware.RequestIDKey, "req-9"))

	RecordRequest(r, Event{Type: EventRateLimitExceed, UserID: "user-2"})

	entry := decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "203.0.113.7", entry["ip"])
	assert.Equal(t, "studyctl", entry["user_agent"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.NotContains(t, entry, "session_id")
}
