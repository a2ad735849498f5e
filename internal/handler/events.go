package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/middleware"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/sse"
)

type EventSubscriber interface {
	Subscribe(userID string) *sse.Client
	Unsubscribe(client *sse.Client)
}

type ActiveSessionReader interface {
	GetActiveSession(ctx context.Context, userID string) (*model.SessionSnapshot, error)
}

// ConnectedEvent opens every stream so a device can render the live session
// before any change arrives.
type ConnectedEvent struct {
	UserID     string                 `json:"userId"`
	ServerTime time.Time              `json:"serverTime"`
	Session    *model.SessionSnapshot `json:"session,omitempty"`
}

// EventsHandler streams session changes to every device a user has open.
type EventsHandler struct {
	broker    EventSubscriber
	sessions  ActiveSessionReader
	heartbeat time.Duration
}

func NewEventsHandler(broker EventSubscriber, sessions ActiveSessionReader) *EventsHandler {
	return &EventsHandler{
		broker:    broker,
		sessions:  sessions,
		heartbeat: sse.HeartbeatInterval,
	}
}

// GET /events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	stream, ok := newEventStream(w)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	client := h.broker.Subscribe(userID)
	defer h.broker.Unsubscribe(client)

	ctx := r.Context()
	logger := log.With().Str("user_id", userID).Logger()
	logger.Debug().Msg("event stream opened")

	if err := stream.send("connected", h.connected(ctx, userID)); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("event stream closed by client")
			return
		case <-client.Done:
			logger.Debug().Msg("event stream closed by server")
			return
		case event := <-client.Events:
			if err := stream.write(event); err != nil {
				logger.Debug().Err(err).Msg("event write failed")
				return
			}
		case <-heartbeat.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) connected(ctx context.Context, userID string) ConnectedEvent {
	event := ConnectedEvent{UserID: userID, ServerTime: time.Now().UTC()}
	if h.sessions == nil {
		return event
	}
	active, err := h.sessions.GetActiveSession(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("active session lookup failed, connecting without it")
		return event
	}
	event.Session = active
	return event
}

// eventStream writes text/event-stream frames and flushes after each one.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.write(sse.Event{Type: eventType, Data: payload})
}

func (s *eventStream) write(event sse.Event) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ping is an SSE comment line; clients ignore it but proxies see traffic.
func (s *eventStream) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
