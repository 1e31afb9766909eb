package pusher

import (
	"context"
	"net/http"
	"time"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
)

type Config struct {
	// URL is the app websocket endpoint, see AppURL in pkg/pusher.
	URL string
	// AuthEndpoint signs private channel subscriptions. Without it only
	// public channels can be joined.
	AuthEndpoint    string
	ActivityTimeout time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	HTTP            *http.Client

	// OnReconnected runs after the transport re-established a dropped connection.
	OnReconnected func(ctx context.Context)
}

type dialer struct {
	cfg    Config
	logger log.Logger
}

// New returns a realtime.Dialer backed by a Pusher protocol client.
func New(cfg Config, logger log.Logger) realtime.Dialer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &dialer{cfg: cfg, logger: logger}
}
