package cache

import (
	"encoding/json"
	"time"
)

type Entry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}

type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Fetches       int64 `json:"fetches"`
	FetchErrors   int64 `json:"fetch_errors"`
	Invalidations int64 `json:"invalidations"`
	StaleServed   int64 `json:"stale_served"`
}

type Config struct {
	// TTL bounds the age of a fresh entry. Zero keeps entries until invalidated.
	TTL time.Duration
}
