package redis

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
	pkgRedis "dogeow-realtime/pkg/redis"
)

func (d *dialer) Dial(ctx context.Context, _ string, dispatch realtime.DispatchFunc) (realtime.Conn, error) {
	if _, err := d.redis.Ping(ctx); err != nil {
		return nil, err
	}
	return &conn{
		redis:    d.redis,
		prefix:   d.prefix,
		logger:   d.logger,
		dispatch: dispatch,
		ctx:      context.WithoutCancel(ctx),
		quit:     make(chan struct{}),
	}, nil
}

// conn multiplexes every joined channel over one PubSub. The PubSub is opened
// on the first Join.
type conn struct {
	redis    pkgRedis.IRedis
	prefix   string
	logger   log.Logger
	dispatch realtime.DispatchFunc
	ctx      context.Context

	mu     sync.Mutex
	pubsub *redis.PubSub
	closed bool

	wg   sync.WaitGroup
	quit chan struct{}
}

func (c *conn) key(ch realtime.Channel) string {
	return c.prefix + ch.WireName()
}

func (c *conn) Join(ctx context.Context, ch realtime.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ErrConnectionClosed
	}

	if c.pubsub == nil {
		c.pubsub = c.redis.Subscribe(ctx, c.key(ch))
		c.wg.Add(1)
		go c.listen(c.pubsub.Channel())
		return nil
	}
	return c.pubsub.Subscribe(ctx, c.key(ch))
}

func (c *conn) Leave(ctx context.Context, ch realtime.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.pubsub == nil {
		return nil
	}
	return c.pubsub.Unsubscribe(ctx, c.key(ch))
}

// listen is the only caller of dispatch.
func (c *conn) listen(ch <-chan *redis.Message) {
	defer c.wg.Done()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				c.logger.Warnf(c.ctx, "redis transport: pubsub channel closed")
				return
			}
			c.handleMessage(msg)
		case <-c.quit:
			return
		}
	}
}

func (c *conn) handleMessage(msg *redis.Message) {
	m, err := decodeMessage(c.prefix, msg.Channel, []byte(msg.Payload))
	if err != nil {
		c.logger.Warnf(c.ctx, "redis transport: bad payload on %s: %v", msg.Channel, err)
		return
	}
	c.dispatch(m)
}

func (c *conn) State() realtime.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ConnStateClosed
	}
	return realtime.ConnStateConnected
}

func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.quit)
	ps := c.pubsub
	c.mu.Unlock()

	var err error
	if ps != nil {
		err = ps.Close()
	}
	c.wg.Wait()
	return err
}

func stripPrefix(prefix, channel string) string {
	return strings.TrimPrefix(channel, prefix)
}
