package connection

import (
	"context"
	"errors"
	"testing"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/internal/realtime/realtimetest"
)

func session(userID int64, token string) realtime.Session {
	return realtime.Session{IsAuthenticated: true, UserID: &userID, Token: token}
}

func TestGetOrCreate_MissingTokenReturnsNilHandle(t *testing.T) {
	dialer := &realtimetest.Dialer{}
	m := New(dialer, nil)

	c, err := m.GetOrCreate(context.Background(), realtime.Session{IsAuthenticated: true})
	if c != nil {
		t.Fatalf("GetOrCreate() handle = %v, want nil", c)
	}
	if !realtime.IsAuthError(err) || !errors.Is(err, realtime.ErrMissingToken) {
		t.Fatalf("GetOrCreate() error = %v, want AuthError(ErrMissingToken)", err)
	}
	if dialer.Dials() != 0 {
		t.Errorf("Dials() = %d, want 0", dialer.Dials())
	}

	if _, err := m.GetOrCreate(context.Background(), realtime.Session{Token: "   "}); !realtime.IsAuthError(err) {
		t.Errorf("blank token error = %v, want AuthError", err)
	}
}

func TestGetOrCreate_ReusesLiveHandle(t *testing.T) {
	dialer := &realtimetest.Dialer{}
	m := New(dialer, nil)
	ctx := context.Background()

	a, err := m.GetOrCreate(ctx, session(42, "tok"))
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	b, err := m.GetOrCreate(ctx, session(42, "tok"))
	if err != nil {
		t.Fatalf("second GetOrCreate() error = %v", err)
	}

	if a.ID() != b.ID() {
		t.Errorf("handles differ: %s vs %s", a.ID(), b.ID())
	}
	if dialer.Dials() != 1 {
		t.Errorf("Dials() = %d, want 1", dialer.Dials())
	}
	if refs := m.Stats().Refs; refs != 2 {
		t.Errorf("Refs = %d, want 2", refs)
	}
}

func TestRelease_ClosesOnLastReference(t *testing.T) {
	dialer := &realtimetest.Dialer{}
	m := New(dialer, nil)
	ctx := context.Background()

	a, _ := m.GetOrCreate(ctx, session(42, "tok"))
	b, _ := m.GetOrCreate(ctx, session(42, "tok"))
	conn := dialer.Last()

	m.Release(ctx, a)
	if conn.Closed() {
		t.Fatal("transport closed while a reference remained")
	}

	m.Release(ctx, b)
	if !conn.Closed() {
		t.Fatal("transport still open after last release")
	}
	if stats := m.Stats(); stats.HandleID != "" || stats.Refs != 0 || stats.State != realtime.ConnStateClosed {
		t.Errorf("Stats() = %+v, want no handle", stats)
	}

	// extra releases of a dead handle are ignored
	m.Release(ctx, b)
	m.Release(ctx, nil)
}

func TestRelease_DetachesLeftoverBindings(t *testing.T) {
	dialer := &realtimetest.Dialer{}
	m := New(dialer, nil)
	ctx := context.Background()

	c, _ := m.GetOrCreate(ctx, session(1, "tok"))
	if err := c.Subscribe(ctx, realtime.KnowledgeIndexChannel(), "x", func(context.Context, realtime.Message) {}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	conn := dialer.Last()

	m.Release(ctx, c)

	if leaves := conn.Leaves(); len(leaves) != 1 || leaves[0] != "knowledge-index" {
		t.Errorf("Leaves() = %v", leaves)
	}
	if err := c.Subscribe(ctx, realtime.KnowledgeIndexChannel(), "x", func(context.Context, realtime.Message) {}); !errors.Is(err, realtime.ErrConnectionClosed) {
		t.Errorf("Subscribe() on released handle error = %v, want ErrConnectionClosed", err)
	}
}

func TestGetOrCreate_OtherTokenWhileReferenced(t *testing.T) {
	dialer := &realtimetest.Dialer{}
	m := New(dialer, nil)
	ctx := context.Background()

	a, _ := m.GetOrCreate(ctx, session(1, "tok-a"))

	_, err := m.GetOrCreate(ctx, session(2, "tok-b"))
	if !realtime.IsConnectionError(err) || !errors.Is(err, realtime.ErrSessionMismatch) {
		t.Fatalf("GetOrCreate() error = %v, want ConnectionError(ErrSessionMismatch)", err)
	}

	m.Release(ctx, a)
	b, err := m.GetOrCreate(ctx, session(2, "tok-b"))
	if err != nil {
		t.Fatalf("GetOrCreate() after release error = %v", err)
	}
	if b.ID() == a.ID() {
		t.Error("new session reused old handle")
	}
	if dialer.Dials() != 2 {
		t.Errorf("Dials() = %d, want 2", dialer.Dials())
	}
}

func TestGetOrCreate_DialFailure(t *testing.T) {
	dialer := &realtimetest.Dialer{Err: errors.New("connection refused")}
	m := New(dialer, nil)

	c, err := m.GetOrCreate(context.Background(), session(1, "tok"))
	if c != nil || !realtime.IsConnectionError(err) {
		t.Fatalf("GetOrCreate() = %v, %v; want nil, ConnectionError", c, err)
	}
	if m.Stats().Dials != 0 {
		t.Errorf("Dials = %d, want 0 successful dials", m.Stats().Dials)
	}
}

func TestShutdown_ClosesRegardlessOfRefs(t *testing.T) {
	dialer := &realtimetest.Dialer{}
	m := New(dialer, nil)
	ctx := context.Background()

	_, _ = m.GetOrCreate(ctx, session(1, "tok"))
	_, _ = m.GetOrCreate(ctx, session(1, "tok"))

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !dialer.Last().Closed() {
		t.Error("transport not closed by Shutdown")
	}
}
