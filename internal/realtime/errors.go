package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when a connection is requested without a token.
	ErrMissingToken = errors.New("realtime: missing auth token")
	// ErrMissingUserID is returned when an authenticated session has no user id.
	ErrMissingUserID = errors.New("realtime: missing user id")
	// ErrSessionMismatch is returned when the live connection belongs to another token.
	ErrSessionMismatch = errors.New("realtime: connection bound to another session")
	// ErrConnectionClosed is returned when using a connection after teardown.
	ErrConnectionClosed = errors.New("realtime: connection closed")
	// ErrNotAttached is returned when a subscriber has no transport yet.
	ErrNotAttached = errors.New("realtime: subscriber not attached to a connection")
	// ErrAlreadySubscribed is returned for a second binding on the same (channel, event).
	ErrAlreadySubscribed = errors.New("realtime: already subscribed")
	// ErrInvalidChannel is returned for malformed channel names.
	ErrInvalidChannel = errors.New("realtime: invalid channel name")
)

// AuthError reports a session that cannot be used to open a connection.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConnectionError reports a transport failure while acquiring or using a connection.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsAuthError checks if an error is an AuthError
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsConnectionError checks if an error is a ConnectionError
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
