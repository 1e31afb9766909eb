package unread

import (
	"errors"
	"fmt"
)

var (
	ErrNoToken      = errors.New("unread: no session token")
	ErrUnauthorized = errors.New("unread: token rejected")
)

type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unread: GET %s: status %d", e.Path, e.Code)
}
