// Package realtimetest provides in-memory transports for tests.
package realtimetest

import (
	"context"
	"encoding/json"
	"sync"

	"dogeow-realtime/internal/realtime"
)

// Conn is an in-memory realtime.Conn that records joins and leaves.
type Conn struct {
	mu       sync.Mutex
	dispatch realtime.DispatchFunc
	joined   map[string]bool
	joins    []string
	leaves   []string
	closed   bool

	JoinErr  error
	LeaveErr error
}

// NewConn returns a Conn delivering to dispatch.
func NewConn(dispatch realtime.DispatchFunc) *Conn {
	return &Conn{dispatch: dispatch, joined: make(map[string]bool)}
}

func (c *Conn) Join(_ context.Context, ch realtime.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ErrConnectionClosed
	}
	if c.JoinErr != nil {
		return c.JoinErr
	}
	c.joined[ch.WireName()] = true
	c.joins = append(c.joins, ch.WireName())
	return nil
}

func (c *Conn) Leave(_ context.Context, ch realtime.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joined, ch.WireName())
	c.leaves = append(c.leaves, ch.WireName())
	return c.LeaveErr
}

func (c *Conn) State() realtime.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ConnStateClosed
	}
	return realtime.ConnStateConnected
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Deliver pushes a message as the server would. Messages for channels that
// are not joined are dropped, like a real server never sends them.
func (c *Conn) Deliver(channel, event string, data any) {
	raw, _ := json.Marshal(data)
	c.mu.Lock()
	joined := c.joined[channel]
	dispatch := c.dispatch
	c.mu.Unlock()
	if !joined || dispatch == nil {
		return
	}
	dispatch(realtime.Message{Channel: channel, Event: event, Data: raw})
}

func (c *Conn) Joined(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined[channel]
}

func (c *Conn) Joins() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.joins...)
}

func (c *Conn) Leaves() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.leaves...)
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Dialer hands out Conns and remembers them.
type Dialer struct {
	mu     sync.Mutex
	conns  []*Conn
	tokens []string

	Err error
}

func (d *Dialer) Dial(_ context.Context, token string, dispatch realtime.DispatchFunc) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, token)
	if d.Err != nil {
		return nil, d.Err
	}
	c := NewConn(dispatch)
	d.conns = append(d.conns, c)
	return c, nil
}

// Last returns the most recently dialed Conn, or nil.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

// Invalidator records cache invalidations.
type Invalidator struct {
	mu   sync.Mutex
	keys []string

	Err error
}

func (i *Invalidator) Invalidate(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys = append(i.keys, key)
	return i.Err
}

// Count returns how many times key was invalidated.
func (i *Invalidator) Count(key string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, k := range i.keys {
		if k == key {
			n++
		}
	}
	return n
}
