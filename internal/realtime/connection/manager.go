package connection

import (
	"context"

	"github.com/google/uuid"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/internal/realtime/subscriber"
	"dogeow-realtime/pkg/log"
)

func (m *implManager) GetOrCreate(ctx context.Context, s realtime.Session) (realtime.Connection, error) {
	if !s.HasToken() {
		m.logger.Debug(ctx, "connection: no token, realtime unavailable")
		return nil, &realtime.AuthError{Reason: "session has no token", Err: realtime.ErrMissingToken}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if h := m.current; h != nil {
		if h.token == s.Token {
			h.refs++
			m.logger.Debugf(ctx, "connection: reusing %s (refs=%d)", h.id, h.refs)
			return h, nil
		}
		if h.refs > 0 {
			return nil, &realtime.ConnectionError{Op: "acquire", Err: realtime.ErrSessionMismatch}
		}
		m.teardownLocked(ctx)
	}

	id := uuid.NewString()
	// the transport keeps this context for its own log lines
	ctx = log.WithFields(ctx, m.logger, "handle", id)

	sub := subscriber.New(m.logger, m.subOpts...)
	conn, err := m.dialer.Dial(ctx, s.Token, sub.Dispatch)
	if err != nil {
		m.logger.Warnf(ctx, "connection: dial failed: %v", err)
		return nil, &realtime.ConnectionError{Op: "dial", Err: err}
	}
	sub.Attach(conn)
	m.dials.Add(1)

	h := &handle{
		id:    id,
		token: s.Token,
		conn:  conn,
		sub:   sub,
		refs:  1,
	}
	m.current = h
	m.logger.Infof(ctx, "connection: opened %s", h.id)
	return h, nil
}

func (m *implManager) Release(ctx context.Context, c realtime.Connection) {
	h, ok := c.(*handle)
	if !ok || h == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if h != m.current || h.refs == 0 {
		m.logger.Debugf(ctx, "connection: release of stale handle %s ignored", h.id)
		return
	}
	h.refs--
	m.logger.Debugf(ctx, "connection: released %s (refs=%d)", h.id, h.refs)
	if h.refs == 0 {
		m.teardownLocked(ctx)
	}
}

// teardownLocked detaches every binding and closes the transport. Close
// errors are logged; teardown always completes.
func (m *implManager) teardownLocked(ctx context.Context) {
	h := m.current
	if h == nil {
		return
	}
	m.current = nil
	h.refs = 0

	h.sub.Detach(ctx)
	if err := h.conn.Close(); err != nil {
		m.logger.Errorf(ctx, "connection: close %s failed: %v", h.id, err)
	}
	m.logger.Infof(ctx, "connection: closed %s", h.id)
}

func (m *implManager) Stats() realtime.ConnectionStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := realtime.ConnectionStats{
		State: realtime.ConnStateClosed,
		Dials: m.dials.Load(),
	}
	if h := m.current; h != nil {
		stats.HandleID = h.id
		stats.Refs = h.refs
		stats.State = h.conn.State()
		sub := h.sub.Stats()
		stats.Subscriber = &sub
	}
	return stats
}

// Shutdown tears the connection down regardless of outstanding references.
func (m *implManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(ctx)
	return ctx.Err()
}
