package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dogeow-realtime/internal/realtime"
)

func user(id int64, token string) realtime.Session {
	return realtime.Session{IsAuthenticated: true, UserID: &id, Token: token}
}

func TestStore_WatchDeliversCurrentThenLatest(t *testing.T) {
	s := NewStore()
	s.Set(user(1, "a"))

	ch, cancel := s.Watch()
	defer cancel()

	got := <-ch
	assert.Equal(t, "a", got.Token)

	s.Set(user(2, "b"))
	s.Set(user(3, "c"))

	got = <-ch
	assert.Equal(t, "c", got.Token)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra session %+v", extra)
	default:
	}
}

func TestStore_SetIgnoresEqualSession(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Watch()
	defer cancel()
	<-ch

	s.Set(realtime.Session{})
	select {
	case got := <-ch:
		t.Fatalf("unexpected delivery %+v", got)
	default:
	}

	s.Set(user(5, "t"))
	s.Set(user(5, "t"))
	<-ch
	select {
	case got := <-ch:
		t.Fatalf("unexpected delivery %+v", got)
	default:
	}
	assert.Equal(t, "t", s.Token())
}

func TestStore_CancelClosesChannel(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Watch()
	<-ch

	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)
	s.Set(user(1, "x"))
}

func TestEqual(t *testing.T) {
	a, b := int64(1), int64(2)
	tests := []struct {
		name string
		x, y realtime.Session
		want bool
	}{
		{"both empty", realtime.Session{}, realtime.Session{}, true},
		{"same user", user(1, "t"), user(1, "t"), true},
		{"other user", user(1, "t"), user(2, "t"), false},
		{"other token", user(1, "t"), user(1, "u"), false},
		{"nil vs set id", realtime.Session{Token: "t"}, realtime.Session{Token: "t", UserID: &a}, false},
		{"ids by value", realtime.Session{UserID: &b}, realtime.Session{UserID: func() *int64 { v := int64(2); return &v }()}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, equal(tc.x, tc.y))
		})
	}
}
