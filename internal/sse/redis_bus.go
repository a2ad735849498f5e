package sse

import (
	"context"

	"github.com/rs/zerolog/log"

	redisclient "github.com/habitguard/study-server/internal/redis"
)

// RedisBus carries events over Redis pub/sub.
type RedisBus struct {
	client *redisclient.Client
}

func NewRedisBus(client *redisclient.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (r *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *RedisBus) Listen(ctx context.Context, channel string, deliver func(payload []byte)) {
	sub := r.client.Subscribe(ctx, channel)
	defer sub.Close()
	log.Debug().Str("channel", channel).Msg("redis channel subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			deliver([]byte(msg.Payload))
		}
	}
}
