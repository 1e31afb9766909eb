package synchronizer

import (
	"sync/atomic"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/pkg/log"
)

type implSynchronizer struct {
	logger log.Logger
	cache  realtime.Invalidator

	events        atomic.Int64
	invalidations atomic.Int64
	failures      atomic.Int64
}

func New(logger log.Logger, cache realtime.Invalidator) realtime.Synchronizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &implSynchronizer{
		logger: logger,
		cache:  cache,
	}
}
