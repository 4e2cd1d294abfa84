package bridge

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel RedisSink publishes to when none is
// given.
const DefaultChannel = "bund:events"

// RedisSink publishes events as JSON on a Redis channel.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

var _ Sink = (*RedisSink)(nil)

// NewRedisSink creates a sink on client.
func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

// Channel returns the channel events are published to.
func (r *RedisSink) Channel() string {
	return r.channel
}

func (r *RedisSink) Dispatch(ctx context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", ev.Type, r.channel, err)
	}
	return nil
}

// Relay reads events published on the sink's channel and dispatches them to
// dst until ctx is done or the subscription closes.
func (r *RedisSink) Relay(ctx context.Context, dst Sink) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := DecodeEvent([]byte(msg.Payload))
			if err != nil {
				continue
			}
			if err := dst.Dispatch(ctx, ev); err != nil {
				return err
			}
		}
	}
}
