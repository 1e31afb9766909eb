package redis

import (
	"context"
	"encoding/json"
	"errors"

	"dogeow-realtime/internal/realtime"
)

var errMissingEvent = errors.New("missing event name")

// envelope is the payload Laravel's Redis broadcaster publishes.
type envelope struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Socket *string         `json:"socket"`
}

func decodeMessage(prefix, channel string, payload []byte) (realtime.Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return realtime.Message{}, err
	}
	if env.Event == "" {
		return realtime.Message{}, errMissingEvent
	}
	return realtime.Message{
		Channel: stripPrefix(prefix, channel),
		Event:   env.Event,
		Data:    env.Data,
	}, nil
}

func (p *publisher) Publish(ctx context.Context, ch realtime.Channel, event string, data any) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope{
		Event: realtime.WireEvent(event, p.namespace),
		Data:  raw,
	})
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, p.prefix+ch.WireName(), body)
}
