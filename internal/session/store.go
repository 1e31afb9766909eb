package session

import (
	"sync"

	"dogeow-realtime/internal/realtime"
)

type implStore struct {
	mu       sync.Mutex
	current  realtime.Session
	watchers map[int]chan realtime.Session
	nextID   int
}

func NewStore() Store {
	return &implStore{watchers: make(map[int]chan realtime.Session)}
}

func (s *implStore) Current() realtime.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *implStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Token
}

func equal(a, b realtime.Session) bool {
	if a.IsAuthenticated != b.IsAuthenticated || a.Token != b.Token {
		return false
	}
	if (a.UserID == nil) != (b.UserID == nil) {
		return false
	}
	return a.UserID == nil || *a.UserID == *b.UserID
}

func (s *implStore) Set(next realtime.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if equal(s.current, next) {
		return
	}
	s.current = next
	for _, ch := range s.watchers {
		offer(ch, next)
	}
}

// offer replaces any undelivered session with s. Callers hold s.mu, so there
// is a single sender per channel.
func offer(ch chan realtime.Session, s realtime.Session) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- s
}

func (s *implStore) Watch() (<-chan realtime.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan realtime.Session, 1)
	ch <- s.current
	s.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers, id)
			close(ch)
		})
	}
	return ch, cancel
}
