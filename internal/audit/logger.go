// Package audit writes one structured log line per security-relevant or
// policy decision, tagged so it can be filtered out of the request log.
package audit

import (
	"context"
	"net"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAuthFailure       EventType = "auth_failure"
	EventTokenExpired      EventType = "token_expired"
	EventRateLimitExceed   EventType = "rate_limit_exceeded"
	EventSessionConflict   EventType = "session_conflict"
	EventSessionNotOwned   EventType = "session_not_owned"
	EventStaleSessionClose EventType = "stale_session_cancelled"
)

// warn marks the events an operator should see at the default log level.
var warn = map[EventType]bool{
	EventAuthFailure:     true,
	EventRateLimitExceed: true,
	EventSessionNotOwned: true,
}

type Event struct {
	Type      EventType
	UserID    string
	SessionID string
	Fields    map[string]any
}

// Record logs event without request context, for services and jobs.
func Record(ctx context.Context, event Event) {
	write(event, nil)
}

// RecordRequest adds the caller's address, user agent and request id.
func RecordRequest(r *http.Request, event Event) {
	write(event, func(e *zerolog.Event) {
		e.Str("ip", remoteHost(r)).Str("user_agent", r.UserAgent())
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			e.Str("request_id", id)
		}
	})
}

func write(event Event, withRequest func(*zerolog.Event)) {
	e := log.Info()
	if warn[event.Type] {
		e = log.Warn()
	}

	e = e.Str("audit", string(event.Type))
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.SessionID != "" {
		e = e.Str("session_id", event.SessionID)
	}
	if withRequest != nil {
		withRequest(e)
	}
	if len(event.Fields) > 0 {
		e = e.Fields(event.Fields)
	}
	e.Msg("audit")
}

// remoteHost trusts RemoteAddr only; proxy headers are resolved upstream by
// chi's RealIP.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
