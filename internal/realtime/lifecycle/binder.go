package lifecycle

import (
	"context"
	"fmt"

	"dogeow-realtime/internal/realtime"
)

var transitions = map[realtime.State][]realtime.State{
	realtime.StateDetached:    {realtime.StateSubscribing},
	realtime.StateSubscribing: {realtime.StateSubscribed, realtime.StateDetached},
	realtime.StateSubscribed:  {realtime.StateDetached},
}

func canTransition(from, to realtime.State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (b *implBinder) transitionLocked(ctx context.Context, to realtime.State) {
	if !canTransition(b.state, to) {
		// unreachable unless the reconcile logic is broken
		panic(fmt.Sprintf("lifecycle: invalid transition %s -> %s", b.state, to))
	}
	b.logger.Debugf(ctx, "lifecycle: %s -> %s", b.state, to)
	b.state = to
}

func (b *implBinder) Mount(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mounted = true
	b.reconcileLocked(ctx)
}

func (b *implBinder) Unmount(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mounted = false
	b.reconcileLocked(ctx)
}

func (b *implBinder) SetSession(ctx context.Context, s realtime.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = s
	b.reconcileLocked(ctx)
}

// reconcileLocked tears down bindings that no longer match the desired state
// before establishing new ones.
func (b *implBinder) reconcileLocked(ctx context.Context) {
	_, hasIdentity := b.session.Identity()
	want := b.mounted && hasIdentity

	if b.state == realtime.StateSubscribed && (!want || !b.session.SameIdentity(b.bound)) {
		b.teardownLocked(ctx)
	}
	if b.state == realtime.StateDetached && want {
		b.subscribeLocked(ctx)
	}
}

func (b *implBinder) subscribeLocked(ctx context.Context) {
	b.transitionLocked(ctx, realtime.StateSubscribing)
	b.lastErr = nil

	conn, err := b.manager.GetOrCreate(ctx, b.session)
	if err != nil {
		b.logger.Warnf(ctx, "lifecycle: realtime unavailable: %v", err)
		b.lastErr = err
		b.transitionLocked(ctx, realtime.StateDetached)
		return
	}

	var active []Binding
	for _, bd := range b.bindings(b.session) {
		if err := conn.Subscribe(ctx, bd.Channel, bd.Event, bd.Handler); err != nil {
			b.logger.Warnf(ctx, "lifecycle: listen %s on %s failed: %v", bd.Event, bd.Channel, err)
			b.lastErr = err
			continue
		}
		active = append(active, bd)
	}

	if len(active) == 0 {
		if b.lastErr == nil {
			b.lastErr = realtime.ErrMissingUserID
		}
		b.manager.Release(ctx, conn)
		b.transitionLocked(ctx, realtime.StateDetached)
		return
	}

	b.conn = conn
	b.bound = b.session
	b.active = active
	b.transitionLocked(ctx, realtime.StateSubscribed)
	b.logger.Infof(ctx, "lifecycle: subscribed %d binding(s)", len(active))
}

// teardownLocked always completes: unsubscribe never fails and leave errors
// are swallowed further down.
func (b *implBinder) teardownLocked(ctx context.Context) {
	for i := len(b.active) - 1; i >= 0; i-- {
		bd := b.active[i]
		b.conn.Unsubscribe(ctx, bd.Channel, bd.Event)
	}
	b.manager.Release(ctx, b.conn)

	b.logger.Infof(ctx, "lifecycle: unsubscribed %d binding(s)", len(b.active))
	b.conn = nil
	b.active = nil
	b.bound = realtime.Session{}
	b.transitionLocked(ctx, realtime.StateDetached)
}

func (b *implBinder) Run(ctx context.Context, sessions <-chan realtime.Session) error {
	b.Mount(ctx)
	// teardown must run even though ctx is already cancelled
	defer b.Unmount(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-sessions:
			if !ok {
				return nil
			}
			b.SetSession(ctx, s)
		}
	}
}

func (b *implBinder) State() realtime.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *implBinder) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

func (b *implBinder) Subscriptions() []realtime.ChannelSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.ChannelSubscription, 0, len(b.active))
	for _, bd := range b.active {
		out = append(out, realtime.ChannelSubscription{
			Channel: bd.Channel.WireName(),
			Event:   bd.Event,
			Active:  true,
		})
	}
	return out
}
