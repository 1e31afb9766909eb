package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"dogeow-realtime/pkg/log"
)

type implCache struct {
	cfg    Config
	store  Store
	logger log.Logger
	now    func() time.Time

	mu       sync.RWMutex
	fetchers map[string]Fetcher
	gens     map[string]uint64 // bumped by Invalidate
	group    singleflight.Group

	hits          atomic.Int64
	misses        atomic.Int64
	fetches       atomic.Int64
	fetchErrors   atomic.Int64
	invalidations atomic.Int64
	staleServed   atomic.Int64
}

func New(cfg Config, store Store, logger log.Logger) Cache {
	if logger == nil {
		logger = log.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &implCache{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		now:      time.Now,
		fetchers: make(map[string]Fetcher),
		gens:     make(map[string]uint64),
	}
}
