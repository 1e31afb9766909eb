package synchronizer

import (
	"context"
	"encoding/json"

	"dogeow-realtime/internal/realtime"
)

// OnNotificationCreated marks the unread summary stale. The payload is only
// decoded for logging; the cache is always refetched from the API.
func (s *implSynchronizer) OnNotificationCreated(ctx context.Context, msg realtime.Message) {
	s.events.Add(1)

	p, err := realtime.DecodeNotificationCreated(msg.Data)
	if err != nil {
		s.logger.Debugf(ctx, "synchronizer: undecodable notification on %s: %v", msg.Channel, err)
	} else if ev := p.Event(); ev.ID != nil {
		s.logger.Debugf(ctx, "synchronizer: notification %s on %s", *ev.ID, msg.Channel)
	}

	s.invalidate(ctx, realtime.CacheKeyUnread)
}

func (s *implSynchronizer) OnKnowledgeIndexUpdated(ctx context.Context, msg realtime.Message) {
	s.events.Add(1)

	var p realtime.KnowledgeIndexUpdatedPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &p); err == nil && p.UpdatedAt != nil {
			s.logger.Debugf(ctx, "synchronizer: knowledge index updated at %s", *p.UpdatedAt)
		}
	}

	s.invalidate(ctx, realtime.CacheKeyKnowledgeIndex)
}

// invalidate never returns an error: a failed refetch leaves the cache stale
// until the next event or read.
func (s *implSynchronizer) invalidate(ctx context.Context, key string) {
	s.invalidations.Add(1)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.failures.Add(1)
		s.logger.Warnf(ctx, "synchronizer: refetch of %s failed: %v", key, err)
	}
}

func (s *implSynchronizer) Stats() realtime.SyncStats {
	return realtime.SyncStats{
		Events:        s.events.Load(),
		Invalidations: s.invalidations.Load(),
		Failures:      s.failures.Load(),
	}
}
