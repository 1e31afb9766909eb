package session

import "errors"

var (
	// ErrLocked is returned when another process holds the session lock.
	ErrLocked = errors.New("session: already in use by another process")
)
