package redis

import (
	"context"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
	pkgRedis "dogeow-realtime/pkg/redis"
)

// DefaultPrefix is the key prefix Laravel applies to broadcast channels.
const DefaultPrefix = "laravel_database_"

// Publisher emits broadcasts in the Laravel Redis broadcaster format.
type Publisher interface {
	Publish(ctx context.Context, ch realtime.Channel, event string, data any) error
}

type dialer struct {
	redis  pkgRedis.IRedis
	prefix string
	logger log.Logger
}

// NewDialer returns a realtime.Dialer that reads broadcasts straight from
// Redis. The token is not checked: Redis access is the credential.
func NewDialer(redis pkgRedis.IRedis, prefix string, logger log.Logger) realtime.Dialer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &dialer{redis: redis, prefix: prefix, logger: logger}
}

type publisher struct {
	redis     pkgRedis.IRedis
	prefix    string
	namespace string
}

func NewPublisher(redis pkgRedis.IRedis, prefix string) Publisher {
	return &publisher{
		redis:     redis,
		prefix:    prefix,
		namespace: realtime.DefaultEventNamespace,
	}
}
