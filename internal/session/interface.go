package session

import (
	"dogeow-realtime/internal/realtime"
)

// Store holds the current auth session. It is the read side of the auth
// store: realtime components only observe it.
type Store interface {
	Current() realtime.Session
	// Token returns the current bearer token, or "".
	Token() string
	Set(s realtime.Session)
	// Watch delivers the current session and then every change. A slow
	// reader only sees the latest session. cancel stops delivery and closes
	// the channel.
	Watch() (sessions <-chan realtime.Session, cancel func())
}
