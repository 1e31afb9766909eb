package pusher

import (
	"encoding/json"
	"strings"
)

// Protocol events.
const (
	EventConnectionEstablished = "pusher:connection_established"
	EventError                 = "pusher:error"
	EventPing                  = "pusher:ping"
	EventPong                  = "pusher:pong"
	EventSubscribe             = "pusher:subscribe"
	EventUnsubscribe           = "pusher:unsubscribe"
	EventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	EventSubscriptionError     = "pusher:subscription_error"

	privatePrefix  = "private-"
	protocolPrefix = "pusher"
)

// Frame is one protocol message. Servers encode Data as a JSON string holding
// JSON; clients may send it as an object.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is an application event received on a channel.
type Message struct {
	Channel string
	Event   string
	Data    []byte
}

type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type subscribeData struct {
	Channel string `json:"channel"`
	Auth    string `json:"auth,omitempty"`
}

type errorData struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

// DecodeData unwraps a frame's data field, which is either a JSON string
// containing the payload or the payload itself.
func DecodeData(raw json.RawMessage) []byte {
	if len(raw) == 0 || raw[0] != '"' {
		return raw
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	return []byte(s)
}

func isProtocolEvent(event string) bool {
	return strings.HasPrefix(event, protocolPrefix)
}

// IsPrivate reports whether a channel needs an auth signature to subscribe.
func IsPrivate(channel string) bool {
	return strings.HasPrefix(channel, privatePrefix)
}

func newFrame(event, channel string, data any) (Frame, error) {
	f := Frame{Event: event, Channel: channel}
	if data == nil {
		f.Data = json.RawMessage(`{}`)
		return f, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	f.Data = raw
	return f, nil
}
