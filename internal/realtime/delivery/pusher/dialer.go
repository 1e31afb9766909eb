package pusher

import (
	"context"

	"dogeow-realtime/internal/realtime"
	pkgPusher "dogeow-realtime/pkg/pusher"
)

func (d *dialer) Dial(ctx context.Context, token string, dispatch realtime.DispatchFunc) (realtime.Conn, error) {
	opts := pkgPusher.Options{
		URL:             d.cfg.URL,
		Logger:          d.logger,
		ActivityTimeout: d.cfg.ActivityTimeout,
		InitialBackoff:  d.cfg.InitialBackoff,
		MaxBackoff:      d.cfg.MaxBackoff,
	}
	if d.cfg.AuthEndpoint != "" {
		opts.Authorizer = pkgPusher.HTTPAuthorizer{
			HTTP:     d.cfg.HTTP,
			Endpoint: d.cfg.AuthEndpoint,
			Token:    token,
			Logger:   d.logger,
		}
	}
	if hook := d.cfg.OnReconnected; hook != nil {
		hookCtx := context.WithoutCancel(ctx)
		opts.OnReconnected = func(socketID string) {
			d.logger.Infof(hookCtx, "pusher transport: reconnected as %s", socketID)
			hook(hookCtx)
		}
	}

	client, err := pkgPusher.Dial(ctx, opts, func(m pkgPusher.Message) {
		dispatch(realtime.Message{Channel: m.Channel, Event: m.Event, Data: m.Data})
	})
	if err != nil {
		return nil, err
	}
	return &conn{client: client}, nil
}

type conn struct {
	client *pkgPusher.Client
}

func (c *conn) Join(ctx context.Context, ch realtime.Channel) error {
	return c.client.Join(ctx, ch.WireName())
}

func (c *conn) Leave(ctx context.Context, ch realtime.Channel) error {
	return c.client.Leave(ctx, ch.WireName())
}

func (c *conn) State() realtime.ConnState {
	return connState(c.client.State())
}

func (c *conn) Close() error {
	return c.client.Close()
}

func connState(s pkgPusher.State) realtime.ConnState {
	switch s {
	case pkgPusher.StateConnected:
		return realtime.ConnStateConnected
	case pkgPusher.StateDisconnected:
		return realtime.ConnStateDisconnected
	case pkgPusher.StateClosed:
		return realtime.ConnStateClosed
	default:
		return realtime.ConnStateConnecting
	}
}
