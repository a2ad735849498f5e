// Package sse fans session changes out to every device a user has open, on
// whichever server instance each device is connected to.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/habitguard/study-server/internal/model"
	redisclient "github.com/habitguard/study-server/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second

	// clientBuffer absorbs a burst of transitions from a fast double-tap.
	clientBuffer = 16
)

// Event is one frame of the stream; Type becomes the SSE event name.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is one connected device. Done closes when the broker drops it.
type Client struct {
	UserID string
	Events chan Event
	Done   chan struct{}
}

// Bus moves payloads between server instances. Listen blocks until ctx is
// done, calling deliver for every payload on channel.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Listen(ctx context.Context, channel string, deliver func(payload []byte))
}

type Broker struct {
	bus Bus

	mu      sync.RWMutex
	devices map[string]map[*Client]struct{}
	stop    map[string]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBroker(bus Bus) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		bus:     bus,
		devices: make(map[string]map[*Client]struct{}),
		stop:    make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe registers a device. The first device of a user starts listening
// on the user's channel.
func (b *Broker) Subscribe(userID string) *Client {
	c := &Client{
		UserID: userID,
		Events: make(chan Event, clientBuffer),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	set, ok := b.devices[userID]
	if !ok {
		set = make(map[*Client]struct{})
		b.devices[userID] = set
		b.listen(userID)
	}
	set[c] = struct{}{}
	n := len(set)
	b.mu.Unlock()

	log.Debug().Str("userId", userID).Int("devices", n).Msg("sse device connected")
	return c
}

// Unsubscribe is safe to call twice.
func (b *Broker) Unsubscribe(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.devices[c.UserID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Done)

	if len(set) == 0 {
		delete(b.devices, c.UserID)
		if stop, ok := b.stop[c.UserID]; ok {
			stop()
			delete(b.stop, c.UserID)
		}
	}
	log.Debug().Str("userId", c.UserID).Int("devices", len(set)).Msg("sse device disconnected")
}

// PublishSessionChange sends change to every device of the user.
func (b *Broker) PublishSessionChange(ctx context.Context, userID string, change model.SessionChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal session change: %w", err)
	}
	payload, err := json.Marshal(Event{Type: change.Type, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.bus.Publish(ctx, redisclient.SessionEventChannel(userID), payload)
}

// Devices counts the user's connections on this instance.
func (b *Broker) Devices(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.devices[userID])
}

// Close drops every device and stops all listeners.
func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.devices {
		for c := range set {
			close(c.Done)
		}
	}
	b.devices = make(map[string]map[*Client]struct{})
	b.stop = make(map[string]context.CancelFunc)
}

// listen starts the user's channel listener. Callers hold mu.
func (b *Broker) listen(userID string) {
	if b.bus == nil {
		return
	}
	ctx, cancel := context.WithCancel(b.ctx)
	b.stop[userID] = cancel

	go b.bus.Listen(ctx, redisclient.SessionEventChannel(userID), func(payload []byte) {
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("drop malformed session event")
			return
		}
		b.fanOut(userID, event)
	})
}

// fanOut never blocks: a device that stopped reading loses the event and
// catches up on its next reload.
func (b *Broker) fanOut(userID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.devices[userID] {
		select {
		case c.Events <- event:
		default:
			log.Warn().Str("userId", userID).Str("event", event.Type).Msg("sse device buffer full")
		}
	}
}
