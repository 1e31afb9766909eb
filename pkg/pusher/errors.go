package pusher

import (
	"errors"
	"fmt"
)

var (
	ErrMissingURL        = errors.New("pusher: missing url")
	ErrClosed            = errors.New("pusher: client closed")
	ErrNoAuthorizer      = errors.New("pusher: private channel requires an authorizer")
	ErrHandshake         = errors.New("pusher: unexpected handshake frame")
	ErrEmptyAuth         = errors.New("pusher: empty auth signature")
	errConnectionDropped = errors.New("pusher: connection dropped")
)

// ProtocolError is a pusher:error frame sent by the server.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pusher error %d: %s", e.Code, e.Message)
}

// Permanent reports whether the server asked the client not to reconnect
// with the same parameters (4000-4099).
func (e *ProtocolError) Permanent() bool {
	return e.Code >= 4000 && e.Code < 4100
}

// HTTPStatusError is returned by HTTPAuthorizer for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "http request failed"
	}
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 or 403 from the auth endpoint.
func IsUnauthorized(err error) bool {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == 401 || statusErr.StatusCode == 403
}
