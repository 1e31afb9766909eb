package subscriber

import (
	"context"
	"sync"
	"sync/atomic"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
)

// Subscriber routes the messages of one connection to the handlers bound on it.
type Subscriber interface {
	realtime.Subscriber

	// Attach sets the transport used to join and leave channels. It must be
	// called once, before the first Subscribe.
	Attach(conn realtime.Conn)
	// Dispatch is the connection's realtime.DispatchFunc.
	Dispatch(msg realtime.Message)
	// Detach removes every binding and refuses new ones.
	Detach(ctx context.Context)
	Bindings() []realtime.ChannelSubscription
	Stats() realtime.SubscriberStats
}

// Option configures a Subscriber.
type Option func(*implSubscriber)

// WithNamespace sets the namespace applied to event names without a leading dot.
func WithNamespace(ns string) Option {
	return func(s *implSubscriber) { s.namespace = ns }
}

type channelEntry struct {
	ch       realtime.Channel
	bindings map[string]realtime.Handler // wire event -> handler
	events   map[string]string           // wire event -> event as given by the caller
}

type implSubscriber struct {
	logger    log.Logger
	namespace string

	mu       sync.Mutex
	conn     realtime.Conn
	channels map[string]*channelEntry // wire channel -> entry
	detached bool

	subscribes    atomic.Int64
	unsubscribes  atomic.Int64
	joins         atomic.Int64
	leaves        atomic.Int64
	dispatched    atomic.Int64
	unrouted      atomic.Int64
	handlerPanics atomic.Int64
}

// New creates a Subscriber with no transport attached.
func New(logger log.Logger, opts ...Option) Subscriber {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &implSubscriber{
		logger:    logger,
		namespace: realtime.DefaultEventNamespace,
		channels:  make(map[string]*channelEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
