package realtime

import (
	"encoding/json"
	"strings"
	"time"
)

// Session is the authentication state read from the auth store.
type Session struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	UserID          *int64 `json:"user_id,omitempty"`
	Token           string `json:"-"`
}

// HasToken reports whether the session carries a usable token.
func (s Session) HasToken() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Identity returns the user id when the session is authenticated and has one.
func (s Session) Identity() (int64, bool) {
	if !s.IsAuthenticated || s.UserID == nil || *s.UserID <= 0 {
		return 0, false
	}
	return *s.UserID, true
}

// SameIdentity reports whether two sessions would own the same subscriptions.
func (s Session) SameIdentity(o Session) bool {
	a, okA := s.Identity()
	b, okB := o.Identity()
	return okA == okB && a == b && s.Token == o.Token
}

// Message is one inbound broadcast. Channel and Event carry wire names,
// e.g. "private-user.42.notifications" and "notification.created".
type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// ChannelSubscription describes one live (channel, event) binding.
type ChannelSubscription struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Active  bool   `json:"active"`
}

// NotificationEvent is the decoded notification carried by a
// ".notification.created" broadcast. It is never persisted here.
type NotificationEvent struct {
	ID        *string        `json:"id,omitempty"`
	Type      *string        `json:"type,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
}

// UnreadSummary is the cached unread notification count.
type UnreadSummary struct {
	Count int `json:"count"`
}

// NotificationCreatedPayload is the wire shape of ".notification.created".
type NotificationCreatedPayload struct {
	Notification *NotificationBody `json:"notification,omitempty"`
	Count        *int              `json:"count,omitempty"`
}

// NotificationBody is the notification object inside NotificationCreatedPayload.
type NotificationBody struct {
	ID        *string        `json:"id,omitempty"`
	Type      *string        `json:"type,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt *string        `json:"created_at,omitempty"`
}

// KnowledgeIndexUpdatedPayload is the wire shape of ".knowledge.index.updated".
type KnowledgeIndexUpdatedPayload struct {
	UpdatedAt *string `json:"updated_at,omitempty"`
}

// Laravel serializes dates either as ISO-8601 with microseconds or as a plain
// datetime, depending on the model cast.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(v string) *time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// Event converts the wire payload into a NotificationEvent. A payload with no
// notification object yields the zero event.
func (p NotificationCreatedPayload) Event() NotificationEvent {
	if p.Notification == nil {
		return NotificationEvent{}
	}
	ev := NotificationEvent{
		ID:      p.Notification.ID,
		Type:    p.Notification.Type,
		Payload: p.Notification.Data,
	}
	if p.Notification.CreatedAt != nil {
		ev.CreatedAt = parseTimestamp(*p.Notification.CreatedAt)
	}
	return ev
}

// DecodeNotificationCreated decodes a ".notification.created" body.
func DecodeNotificationCreated(data []byte) (NotificationCreatedPayload, error) {
	var p NotificationCreatedPayload
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return NotificationCreatedPayload{}, err
	}
	return p, nil
}

// --- State ---

// State is the lifecycle state of a subscription owner.
type State string

const (
	StateDetached    State = "detached"
	StateSubscribing State = "subscribing"
	StateSubscribed  State = "subscribed"
)

// ConnState is the transport-level state of a connection.
type ConnState string

const (
	ConnStateConnecting   ConnState = "connecting"
	ConnStateConnected    ConnState = "connected"
	ConnStateDisconnected ConnState = "disconnected"
	ConnStateClosed       ConnState = "closed"
)

// --- Stats ---

type SubscriberStats struct {
	ActiveBindings int   `json:"active_bindings"`
	ActiveChannels int   `json:"active_channels"`
	Subscribes     int64 `json:"subscribes"`
	Unsubscribes   int64 `json:"unsubscribes"`
	Joins          int64 `json:"joins"`
	Leaves         int64 `json:"leaves"`
	Dispatched     int64 `json:"dispatched"`
	Unrouted       int64 `json:"unrouted"`
	HandlerPanics  int64 `json:"handler_panics"`
}

type ConnectionStats struct {
	HandleID string    `json:"handle_id,omitempty"`
	Refs     int       `json:"refs"`
	State    ConnState `json:"state"`
	Dials    int64     `json:"dials"`

	Subscriber *SubscriberStats `json:"subscriber,omitempty"`
}

type SyncStats struct {
	Events        int64 `json:"events"`
	Invalidations int64 `json:"invalidations"`
	Failures      int64 `json:"failures"`
}
