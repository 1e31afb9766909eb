package unread

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dogeow-realtime/internal/cache"
	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
)

// Client reads notification state from the DogeOW API.
type Client interface {
	UnreadCount(ctx context.Context) (realtime.UnreadSummary, error)
	KnowledgeIndex(ctx context.Context) (json.RawMessage, error)
}

// TokenFunc returns the bearer token of the current session.
type TokenFunc func() string

type Config struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client
}

const DefaultTimeout = 10 * time.Second

type implClient struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	logger  log.Logger
}

func New(cfg Config, token TokenFunc, logger log.Logger) Client {
	if logger == nil {
		logger = log.NewNop()
	}
	hc := cfg.HTTP
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &implClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		token:   token,
		logger:  logger,
	}
}

// Register binds the client's endpoints to their cache keys.
func Register(c cache.Cache, client Client) {
	c.Register(realtime.CacheKeyUnread, func(ctx context.Context) (json.RawMessage, error) {
		s, err := client.UnreadCount(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(s)
	})
	c.Register(realtime.CacheKeyKnowledgeIndex, client.KnowledgeIndex)
}
