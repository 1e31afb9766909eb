package cache

import "errors"

var (
	ErrUnknownKey = errors.New("cache: no fetcher registered for key")
)
