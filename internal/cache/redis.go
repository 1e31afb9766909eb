package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgRedis "dogeow-realtime/pkg/redis"
)

// DefaultRedisPrefix namespaces cache keys in a shared Redis.
const DefaultRedisPrefix = "dogeow:cache:"

type redisStore struct {
	redis  pkgRedis.IRedis
	prefix string
	ttl    time.Duration
}

// NewRedisStore stores entries as JSON. ttl is the Redis expiry of an entry;
// zero means no expiry.
func NewRedisStore(redis pkgRedis.IRedis, prefix string, ttl time.Duration) Store {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisStore{redis: redis, prefix: prefix, ttl: ttl}
}

func (s *redisStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.redis.Get(ctx, s.prefix+key)
	if errors.Is(err, pkgRedis.ErrNil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *redisStore) Save(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, s.prefix+key, raw, s.ttl)
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.redis.Delete(ctx, s.prefix+key)
}
