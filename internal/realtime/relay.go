package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type wireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
	Room string          `json:"room,omitempty"`
}

// RedisRelay fans events out through a Redis Pub/Sub channel so that every process
// holding a Hub sees events published by any other process.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   Publisher
	log     zerolog.Logger
}

// NewRedisRelay publishes to channel; local receives what arrives on it and may be nil
// for processes that only publish.
func NewRedisRelay(client *redis.Client, channel string, local Publisher, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		log:     log.With().Str("component", "relay").Logger(),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, evt Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		r.log.Error().Err(err).Str("event", evt.Name).Msg("encode event failed")
		return
	}
	if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
		r.log.Warn().Err(err).Str("event", evt.Name).Msg("relay publish failed")
	}
}

// Run forwards channel messages to the local publisher until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	if r.local == nil {
		<-ctx.Done()
		return nil
	}

	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var evt wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				r.log.Warn().Err(err).Msg("discarding malformed relay message")
				continue
			}
			r.local.Publish(ctx, Event{Name: evt.Name, Data: evt.Data, Room: evt.Room})
		}
	}
}
