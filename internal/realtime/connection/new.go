package connection

import (
	"context"
	"sync"
	"sync/atomic"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/internal/realtime/subscriber"
	"dogeow-realtime/pkg/log"
)

// implManager implements realtime.ConnectionManager.
type implManager struct {
	dialer  realtime.Dialer
	logger  log.Logger
	subOpts []subscriber.Option

	mu      sync.Mutex
	current *handle

	dials atomic.Int64
}

// New creates a ConnectionManager that dials through dialer. Options are
// applied to the subscriber of every connection it creates.
func New(dialer realtime.Dialer, logger log.Logger, subOpts ...subscriber.Option) realtime.ConnectionManager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &implManager{
		dialer:  dialer,
		logger:  logger,
		subOpts: subOpts,
	}
}

// handle is the shared connection plus its subscriber. It implements realtime.Connection.
type handle struct {
	id    string
	token string
	conn  realtime.Conn
	sub   subscriber.Subscriber
	refs  int
}

func (h *handle) ID() string { return h.id }

func (h *handle) State() realtime.ConnState { return h.conn.State() }

func (h *handle) Stats() realtime.SubscriberStats { return h.sub.Stats() }

func (h *handle) Subscribe(ctx context.Context, ch realtime.Channel, event string, fn realtime.Handler) error {
	return h.sub.Subscribe(ctx, ch, event, fn)
}

func (h *handle) Unsubscribe(ctx context.Context, ch realtime.Channel, event string) {
	h.sub.Unsubscribe(ctx, ch, event)
}
