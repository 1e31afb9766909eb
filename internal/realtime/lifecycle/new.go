package lifecycle

import (
	"context"
	"sync"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
)

// Binding is one handler to keep bound while a session is active.
type Binding struct {
	Channel realtime.Channel
	Event   string
	Handler realtime.Handler
}

// BindingsFunc computes the bindings owned by a session.
type BindingsFunc func(s realtime.Session) []Binding

// Binder keeps subscriptions in step with mount state and the auth session.
type Binder interface {
	Mount(ctx context.Context)
	Unmount(ctx context.Context)
	SetSession(ctx context.Context, s realtime.Session)
	// Run mounts, applies every session received and unmounts when ctx is
	// done or sessions is closed.
	Run(ctx context.Context, sessions <-chan realtime.Session) error

	State() realtime.State
	// LastError is the failure of the most recent subscribe attempt, or nil.
	LastError() error
	Subscriptions() []realtime.ChannelSubscription
}

type implBinder struct {
	logger   log.Logger
	manager  realtime.ConnectionManager
	bindings BindingsFunc

	mu      sync.Mutex
	mounted bool
	session realtime.Session
	state   realtime.State
	conn    realtime.Connection
	bound   realtime.Session
	active  []Binding
	lastErr error
}

func New(logger log.Logger, manager realtime.ConnectionManager, bindings BindingsFunc) Binder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &implBinder{
		logger:   logger,
		manager:  manager,
		bindings: bindings,
		state:    realtime.StateDetached,
	}
}

// DefaultBindings binds the per-user notification channel and the knowledge
// index broadcast to the synchronizer.
func DefaultBindings(syncer realtime.Synchronizer) BindingsFunc {
	return func(s realtime.Session) []Binding {
		userID, ok := s.Identity()
		if !ok {
			return nil
		}
		return []Binding{
			{
				Channel: realtime.UserNotificationsChannel(userID),
				Event:   realtime.EventNotificationCreated,
				Handler: syncer.OnNotificationCreated,
			},
			{
				Channel: realtime.KnowledgeIndexChannel(),
				Event:   realtime.EventKnowledgeIndexUpdated,
				Handler: syncer.OnKnowledgeIndexUpdated,
			},
		}
	}
}
