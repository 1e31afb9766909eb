package realtime

import (
	"context"
)

// DispatchFunc receives every inbound message of a connection. Transports call
// it from a single goroutine per connection.
type DispatchFunc func(msg Message)

// Conn is a live connection to the broadcast server. Join and Leave register
// intent and return without waiting for a server round-trip.
type Conn interface {
	Join(ctx context.Context, ch Channel) error
	Leave(ctx context.Context, ch Channel) error
	State() ConnState
	Close() error
}

// Dialer opens transport connections authenticated with a session token.
type Dialer interface {
	Dial(ctx context.Context, token string, dispatch DispatchFunc) (Conn, error)
}

// Handler is bound to one (channel, event) pair.
type Handler func(ctx context.Context, msg Message)

// Subscriber binds handlers to named channel events.
type Subscriber interface {
	// Subscribe joins the channel if needed and binds h to event on it.
	Subscribe(ctx context.Context, ch Channel, event string, h Handler) error
	// Unsubscribe removes the binding and leaves the channel once no binding
	// is left on it. Unknown pairs are a no-op.
	Unsubscribe(ctx context.Context, ch Channel, event string)
}

// Connection is the shared client handle handed out by a ConnectionManager.
type Connection interface {
	Subscriber
	ID() string
	State() ConnState
	Stats() SubscriberStats
}

// ConnectionManager owns the single shared connection of a session.
type ConnectionManager interface {
	// GetOrCreate returns the live connection for the session's token, or dials
	// one. Each successful call takes a reference that must be given back with Release.
	GetOrCreate(ctx context.Context, s Session) (Connection, error)
	// Release drops one reference; the transport closes with the last one.
	Release(ctx context.Context, c Connection)
	Stats() ConnectionStats
	Shutdown(ctx context.Context) error
}

// Invalidator marks a cache key stale so the cache layer refetches it.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Synchronizer turns inbound events into cache invalidations.
type Synchronizer interface {
	OnNotificationCreated(ctx context.Context, msg Message)
	OnKnowledgeIndexUpdated(ctx context.Context, msg Message)
	Stats() SyncStats
}
