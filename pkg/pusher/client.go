package pusher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"dogeow-realtime/pkg/log"
)

// Version is reported to the server in the connection URL.
const Version = "1.0.0"

const (
	DefaultActivityTimeout  = 120 * time.Second
	DefaultPongTimeout      = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultInitialBackoff   = time.Second
	DefaultMaxBackoff       = 30 * time.Second

	maxMessageSize = 1 << 20
	sendBufferSize = 64
)

// State is the connection state of a Client.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateClosed       State = "closed"
)

type Options struct {
	// URL is the websocket endpoint, see AppURL.
	URL        string
	Authorizer Authorizer
	Logger     log.Logger
	Dialer     *websocket.Dialer

	// ActivityTimeout caps the server's activity_timeout; the client pings
	// after this much silence.
	ActivityTimeout  time.Duration
	PongTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration

	// OnConnected runs after every successful handshake. OnReconnected runs
	// after every handshake but the first. Both run on their own goroutine.
	OnConnected   func(socketID string)
	OnReconnected func(socketID string)
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewNop()
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.ActivityTimeout <= 0 {
		o.ActivityTimeout = DefaultActivityTimeout
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = DefaultPongTimeout
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.WriteWait <= 0 {
		o.WriteWait = DefaultWriteWait
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
}

// AppURL builds the websocket URL of a Pusher protocol app.
func AppURL(secure bool, host string, port int, key string) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/app/" + key,
		RawQuery: "protocol=7&client=go&version=" + Version + "&flash=false",
	}
	return u.String()
}

// Client is a Pusher protocol client that keeps a set of channels joined
// across reconnects.
type Client struct {
	opts     Options
	logger   log.Logger
	dispatch func(Message)

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu       sync.Mutex
	state    State
	channels map[string]struct{}
	sess     *session
	connects int
}

type session struct {
	ws       *websocket.Conn
	socketID string
	send     chan Frame
	done     chan struct{}
}

func (s *session) enqueue(f Frame) bool {
	select {
	case s.send <- f:
		return true
	default:
		return false
	}
}

// Dial starts the connect loop and returns without waiting for the
// handshake. dispatch is called from a single goroutine for every
// application event. The client outlives ctx; stop it with Close.
func Dial(ctx context.Context, opts Options, dispatch func(Message)) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, ErrMissingURL
	}
	opts.setDefaults()
	if dispatch == nil {
		dispatch = func(Message) {}
	}

	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Client{
		opts:     opts,
		logger:   opts.Logger,
		dispatch: dispatch,
		ctx:      cctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateConnecting,
		channels: make(map[string]struct{}),
	}
	go c.run()
	return c, nil
}

func (c *Client) run() {
	defer close(c.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = c.opts.MaxBackoff

	_, err := backoff.Retry(c.ctx, func() (struct{}, error) {
		err := c.connect(b)
		if c.ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(c.ctx.Err())
		}
		var perr *ProtocolError
		if errors.As(err, &perr) && perr.Permanent() {
			return struct{}{}, backoff.Permanent(err)
		}
		if err == nil {
			err = errConnectionDropped
		}
		c.setState(StateDisconnected)
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debugf(c.ctx, "pusher: reconnecting in %s: %v", next, err)
		}),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Errorf(c.ctx, "pusher: giving up: %v", err)
	}
	c.setState(StateClosed)
}

// connect runs one connection until it drops.
func (c *Client) connect(b *backoff.ExponentialBackOff) error {
	c.setState(StateConnecting)

	ws, _, err := c.opts.Dialer.DialContext(c.ctx, c.opts.URL, nil)
	if err != nil {
		return err
	}

	socketID, activity, err := c.handshake(ws)
	if err != nil {
		ws.Close()
		return err
	}
	b.Reset()

	sess := &session{
		ws:       ws,
		socketID: socketID,
		send:     make(chan Frame, sendBufferSize),
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = sess
	c.state = StateConnected
	c.connects++
	reconnected := c.connects > 1
	for _, ch := range c.channelsLocked() {
		c.subscribeLocked(sess, ch)
	}
	c.mu.Unlock()

	c.logger.Infof(c.ctx, "pusher: connected as %s", socketID)
	if hook := c.opts.OnConnected; hook != nil {
		c.wg.Go(func() { hook(socketID) })
	}
	if hook := c.opts.OnReconnected; hook != nil && reconnected {
		c.wg.Go(func() { hook(socketID) })
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(sess, activity)
	}()
	err = c.readPump(sess, activity)
	close(sess.done)
	<-writerDone

	c.mu.Lock()
	if c.sess == sess {
		c.sess = nil
	}
	c.mu.Unlock()
	return err
}

func (c *Client) handshake(ws *websocket.Conn) (string, time.Duration, error) {
	ws.SetReadDeadline(time.Now().Add(c.opts.HandshakeTimeout))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return "", 0, err
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	switch f.Event {
	case EventConnectionEstablished:
		var ce connectionEstablished
		if err := json.Unmarshal(DecodeData(f.Data), &ce); err != nil || ce.SocketID == "" {
			return "", 0, fmt.Errorf("%w: bad connection_established payload", ErrHandshake)
		}
		activity := c.opts.ActivityTimeout
		if server := time.Duration(ce.ActivityTimeout) * time.Second; server > 0 && server < activity {
			activity = server
		}
		return ce.SocketID, activity, nil
	case EventError:
		return "", 0, parseError(f.Data)
	default:
		return "", 0, fmt.Errorf("%w: %s", ErrHandshake, f.Event)
	}
}

func parseError(raw json.RawMessage) *ProtocolError {
	var d errorData
	_ = json.Unmarshal(DecodeData(raw), &d)
	perr := &ProtocolError{Message: d.Message}
	if d.Code != nil {
		perr.Code = *d.Code
	}
	return perr
}

// readPump is the only reader of the connection and the only caller of dispatch.
func (c *Client) readPump(sess *session, activity time.Duration) error {
	ws := sess.ws
	ws.SetReadLimit(maxMessageSize)
	extend := func() {
		ws.SetReadDeadline(time.Now().Add(activity + c.opts.PongTimeout))
	}
	extend()
	ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warnf(c.ctx, "pusher: read error: %v", err)
			}
			return err
		}
		extend()

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.logger.Debugf(c.ctx, "pusher: skipping malformed frame: %v", err)
			continue
		}

		switch f.Event {
		case EventPing:
			pong, _ := newFrame(EventPong, "", nil)
			sess.enqueue(pong)
		case EventPong:
		case EventError:
			perr := parseError(f.Data)
			c.logger.Warnf(c.ctx, "pusher: server error: %v", perr)
			if perr.Code >= 4000 && perr.Code < 4300 {
				return perr
			}
		case EventSubscriptionSucceeded:
			c.logger.Debugf(c.ctx, "pusher: subscribed to %s", f.Channel)
		case EventSubscriptionError:
			c.logger.Warnf(c.ctx, "pusher: subscription to %s rejected: %s", f.Channel, DecodeData(f.Data))
		default:
			if isProtocolEvent(f.Event) {
				c.logger.Debugf(c.ctx, "pusher: ignoring %s", f.Event)
				continue
			}
			c.dispatch(Message{Channel: f.Channel, Event: f.Event, Data: DecodeData(f.Data)})
		}
	}
}

// writePump is the only writer of the connection. It closes the socket on
// exit, which ends readPump.
func (c *Client) writePump(sess *session, activity time.Duration) {
	ws := sess.ws
	ticker := time.NewTicker(activity)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case f := <-sess.send:
			ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := ws.WriteJSON(f); err != nil {
				c.logger.Debugf(c.ctx, "pusher: write failed: %v", err)
				return
			}
		case <-ticker.C:
			ping, _ := newFrame(EventPing, "", nil)
			ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := ws.WriteJSON(ping); err != nil {
				return
			}
		case <-sess.done:
			return
		case <-c.ctx.Done():
			ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) subscribeLocked(sess *session, channel string) {
	if !IsPrivate(channel) {
		f, _ := newFrame(EventSubscribe, "", subscribeData{Channel: channel})
		sess.enqueue(f)
		return
	}
	c.wg.Go(func() { c.authorizeAndSubscribe(sess, channel) })
}

func (c *Client) authorizeAndSubscribe(sess *session, channel string) {
	auth, err := c.opts.Authorizer.Authorize(c.ctx, sess.socketID, channel)
	if err != nil {
		c.logger.Warnf(c.ctx, "pusher: authorize %s: %v", channel, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[channel]; !ok || c.sess != sess {
		return
	}
	f, _ := newFrame(EventSubscribe, "", subscribeData{Channel: channel, Auth: auth})
	sess.enqueue(f)
}

// Join adds channel to the joined set and subscribes on the live connection,
// if any. It does not wait for the server to confirm.
func (c *Client) Join(_ context.Context, channel string) error {
	if IsPrivate(channel) && c.opts.Authorizer == nil {
		return ErrNoAuthorizer
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed || c.ctx.Err() != nil {
		return ErrClosed
	}
	if _, ok := c.channels[channel]; ok {
		return nil
	}
	c.channels[channel] = struct{}{}
	if c.sess != nil {
		c.subscribeLocked(c.sess, channel)
	}
	return nil
}

// Leave removes channel from the joined set. Unknown channels are a no-op.
func (c *Client) Leave(_ context.Context, channel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[channel]; !ok {
		return nil
	}
	delete(c.channels, channel)
	if c.sess != nil {
		f, _ := newFrame(EventUnsubscribe, "", subscribeData{Channel: channel})
		c.sess.enqueue(f)
	}
	return nil
}

// Channels returns the joined channels, sorted.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelsLocked()
}

func (c *Client) channelsLocked() []string {
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.socketID
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = s
	}
}

// Close stops the connect loop and waits for every goroutine of the client.
func (c *Client) Close() error {
	c.closeOnce.Do(c.cancel)
	<-c.done
	c.wg.Wait()
	return nil
}
