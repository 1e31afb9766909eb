package realtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Channel name constraints of the Pusher protocol.
const (
	MinChannelNameLength = 1
	MaxChannelNameLength = 164

	privatePrefix = "private-"
)

// Known channels and events.
const (
	KnowledgeIndexChannelName = "knowledge-index"

	EventNotificationCreated   = ".notification.created"
	EventKnowledgeIndexUpdated = ".knowledge.index.updated"

	// DefaultEventNamespace is prepended to event names that do not start with a dot.
	DefaultEventNamespace = "App.Events"
)

// Cache keys invalidated by the synchronizer.
const (
	CacheKeyUnread         = "notifications/unread"
	CacheKeyKnowledgeIndex = "knowledge/index"
)

var channelNamePattern = regexp.MustCompile(`^[-a-zA-Z0-9_=@,.;]+$`)

// Channel is a named pub/sub topic, either private to one user or public.
type Channel struct {
	Name    string
	Private bool
}

func PrivateChannel(name string) Channel { return Channel{Name: name, Private: true} }
func PublicChannel(name string) Channel  { return Channel{Name: name} }

// UserNotificationsChannel is the private per-user notification channel.
func UserNotificationsChannel(userID int64) Channel {
	return PrivateChannel("user." + strconv.FormatInt(userID, 10) + ".notifications")
}

// KnowledgeIndexChannel carries knowledge index broadcasts to every listener.
func KnowledgeIndexChannel() Channel {
	return PublicChannel(KnowledgeIndexChannelName)
}

// WireName is the name the broadcast server knows the channel by.
func (c Channel) WireName() string {
	if c.Private {
		return privatePrefix + c.Name
	}
	return c.Name
}

func (c Channel) String() string { return c.WireName() }

// ParseWireChannel is the inverse of WireName.
func ParseWireChannel(wire string) Channel {
	if name, ok := strings.CutPrefix(wire, privatePrefix); ok {
		return PrivateChannel(name)
	}
	return PublicChannel(wire)
}

// ChannelValidationError represents a channel name validation error
type ChannelValidationError struct {
	Name    string
	Message string
}

func (e *ChannelValidationError) Error() string {
	return fmt.Sprintf("invalid channel %q: %s", e.Name, e.Message)
}

func (e *ChannelValidationError) Unwrap() error { return ErrInvalidChannel }

// Validate checks the wire name against the protocol's length and charset rules.
func (c Channel) Validate() error {
	wire := c.WireName()
	if len(c.Name) < MinChannelNameLength || len(wire) > MaxChannelNameLength {
		return &ChannelValidationError{
			Name:    wire,
			Message: fmt.Sprintf("must be %d-%d characters", MinChannelNameLength, MaxChannelNameLength),
		}
	}
	if !channelNamePattern.MatchString(wire) {
		return &ChannelValidationError{
			Name:    wire,
			Message: "only alphanumeric and -_=@,.; allowed",
		}
	}
	return nil
}

// WireEvent formats an event name the way the broadcaster emits it. A leading
// dot (or backslash) opts out of the namespace; other names are namespaced and
// use backslashes as separators, e.g. "NotificationCreated" becomes
// `App\Events\NotificationCreated`.
func WireEvent(event, namespace string) string {
	if strings.HasPrefix(event, ".") || strings.HasPrefix(event, `\`) {
		return event[1:]
	}
	if namespace != "" {
		event = namespace + "." + event
	}
	return strings.ReplaceAll(event, ".", `\`)
}
