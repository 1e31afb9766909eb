package pusher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func stringData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	inner, err := json.Marshal(v)
	require.NoError(t, err)
	outer, err := json.Marshal(string(inner))
	require.NoError(t, err)
	return outer
}

type serverConn struct {
	ws  *websocket.Conn
	wmu sync.Mutex
}

func (c *serverConn) write(f Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteJSON(f)
}

// reverb is a minimal Pusher protocol server.
type reverb struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	rejectCode int

	mu     sync.Mutex
	conns  []*serverConn
	nextID int

	frames chan Frame
}

func newReverb(t *testing.T) *reverb {
	r := &reverb{t: t, frames: make(chan Frame, 256)}
	r.srv = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.Close)
	return r
}

func (r *reverb) URL() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/app/test-key?protocol=7"
}

func (r *reverb) handle(w http.ResponseWriter, req *http.Request) {
	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer ws.Close()
	conn := &serverConn{ws: ws}

	r.mu.Lock()
	r.nextID++
	socketID := fmt.Sprintf("%d.%d", r.nextID, r.nextID*1000)
	r.conns = append(r.conns, conn)
	reject := r.rejectCode
	r.mu.Unlock()

	if reject != 0 {
		_ = conn.write(Frame{Event: EventError, Data: json.RawMessage(fmt.Sprintf(`{"code":%d,"message":"rejected"}`, reject))})
		return
	}

	_ = conn.write(Frame{
		Event: EventConnectionEstablished,
		Data:  stringData(r.t, map[string]any{"socket_id": socketID, "activity_timeout": 30}),
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if json.Unmarshal(raw, &f) != nil {
			continue
		}
		if f.Event == EventSubscribe {
			var d subscribeData
			_ = json.Unmarshal(f.Data, &d)
			_ = conn.write(Frame{Event: EventSubscriptionSucceeded, Channel: d.Channel, Data: json.RawMessage(`"{}"`)})
		}
		r.frames <- f
	}
}

// send writes f to the most recent connection.
func (r *reverb) send(f Frame) {
	r.mu.Lock()
	conn := r.conns[len(r.conns)-1]
	r.mu.Unlock()
	require.NoError(r.t, conn.write(f))
}

func (r *reverb) dropAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		c.ws.Close()
	}
}

func (r *reverb) Close() {
	r.dropAll()
	r.srv.Close()
}

func (r *reverb) expect(t *testing.T, event string) Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-r.frames:
			if f.Event == event {
				return f
			}
		case <-timeout:
			t.Fatalf("no %s frame received", event)
			return Frame{}
		}
	}
}

func testOptions(url string) Options {
	return Options{
		URL:            url,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	}
}

func TestClient_SubscribeAndDispatch(t *testing.T) {
	r := newReverb(t)
	msgs := make(chan Message, 1)

	c, err := Dial(context.Background(), testOptions(r.URL()), func(m Message) { msgs <- m })
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Join(context.Background(), "knowledge-index"))

	f := r.expect(t, EventSubscribe)
	var d subscribeData
	require.NoError(t, json.Unmarshal(f.Data, &d))
	assert.Equal(t, "knowledge-index", d.Channel)
	assert.Empty(t, d.Auth)
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, "1.1000", c.SocketID())

	r.send(Frame{
		Event:   "knowledge.index.updated",
		Channel: "knowledge-index",
		Data:    stringData(t, map[string]string{"updated_at": "2024-05-01 10:00:00"}),
	})

	select {
	case m := <-msgs:
		assert.Equal(t, "knowledge-index", m.Channel)
		assert.Equal(t, "knowledge.index.updated", m.Event)
		assert.JSONEq(t, `{"updated_at":"2024-05-01 10:00:00"}`, string(m.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("message not dispatched")
	}
}

func TestClient_PrivateChannelAuth(t *testing.T) {
	r := newReverb(t)

	var gotSocket, gotChannel string
	var mu sync.Mutex
	opts := testOptions(r.URL())
	opts.Authorizer = AuthorizerFunc(func(_ context.Context, socketID, channel string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		gotSocket, gotChannel = socketID, channel
		return "test-key:signature", nil
	})

	c, err := Dial(context.Background(), opts, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Join(context.Background(), "private-user.42.notifications"))

	f := r.expect(t, EventSubscribe)
	var d subscribeData
	require.NoError(t, json.Unmarshal(f.Data, &d))
	assert.Equal(t, "private-user.42.notifications", d.Channel)
	assert.Equal(t, "test-key:signature", d.Auth)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "1.1000", gotSocket)
	assert.Equal(t, "private-user.42.notifications", gotChannel)
}

func TestClient_PrivateChannelWithoutAuthorizer(t *testing.T) {
	r := newReverb(t)

	c, err := Dial(context.Background(), testOptions(r.URL()), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorIs(t, c.Join(context.Background(), "private-user.1.notifications"), ErrNoAuthorizer)
	assert.Empty(t, c.Channels())
}

func TestClient_LeaveSendsUnsubscribe(t *testing.T) {
	r := newReverb(t)

	c, err := Dial(context.Background(), testOptions(r.URL()), nil)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Join(ctx, "knowledge-index"))
	r.expect(t, EventSubscribe)

	require.NoError(t, c.Leave(ctx, "knowledge-index"))
	f := r.expect(t, EventUnsubscribe)
	var d subscribeData
	require.NoError(t, json.Unmarshal(f.Data, &d))
	assert.Equal(t, "knowledge-index", d.Channel)
	assert.Empty(t, c.Channels())

	// leaving an unknown channel is a no-op
	assert.NoError(t, c.Leave(ctx, "never-joined"))
}

func TestClient_ReconnectResubscribes(t *testing.T) {
	r := newReverb(t)
	reconnected := make(chan string, 1)

	opts := testOptions(r.URL())
	opts.OnReconnected = func(socketID string) { reconnected <- socketID }

	c, err := Dial(context.Background(), opts, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Join(context.Background(), "knowledge-index"))
	r.expect(t, EventSubscribe)

	r.dropAll()

	f := r.expect(t, EventSubscribe)
	var d subscribeData
	require.NoError(t, json.Unmarshal(f.Data, &d))
	assert.Equal(t, "knowledge-index", d.Channel)

	select {
	case id := <-reconnected:
		assert.Equal(t, "2.2000", id)
	case <-time.After(2 * time.Second):
		t.Fatal("OnReconnected not called")
	}
	assert.Equal(t, []string{"knowledge-index"}, c.Channels())
}

func TestClient_AnswersPing(t *testing.T) {
	r := newReverb(t)
	connected := make(chan string, 1)

	opts := testOptions(r.URL())
	opts.OnConnected = func(id string) { connected <- id }

	c, err := Dial(context.Background(), opts, nil)
	require.NoError(t, err)
	defer c.Close()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("not connected")
	}

	r.send(Frame{Event: EventPing, Data: json.RawMessage(`{}`)})
	r.expect(t, EventPong)
}

func TestClient_PermanentErrorStops(t *testing.T) {
	r := newReverb(t)
	r.mu.Lock()
	r.rejectCode = 4001
	r.mu.Unlock()

	c, err := Dial(context.Background(), testOptions(r.URL()), nil)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool { return c.State() == StateClosed }, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, c.Join(context.Background(), "knowledge-index"), ErrClosed)
}

func TestClient_Close(t *testing.T) {
	r := newReverb(t)

	c, err := Dial(context.Background(), testOptions(r.URL()), nil)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())
	assert.ErrorIs(t, c.Join(context.Background(), "knowledge-index"), ErrClosed)
}

func TestDial_MissingURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{}, nil)
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestDecodeData(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "string encoded", raw: `"{\"count\":1}"`, want: `{"count":1}`},
		{name: "object", raw: `{"count":1}`, want: `{"count":1}`},
		{name: "empty", raw: ``, want: ``},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(DecodeData(json.RawMessage(tc.raw))))
		})
	}
}

func TestAppURL(t *testing.T) {
	assert.Equal(t,
		"wss://reverb.example.com:443/app/abc?protocol=7&client=go&version="+Version+"&flash=false",
		AppURL(true, "reverb.example.com", 443, "abc"))
	assert.Equal(t,
		"ws://127.0.0.1:8080/app/abc?protocol=7&client=go&version="+Version+"&flash=false",
		AppURL(false, "127.0.0.1", 8080, "abc"))
}

func TestProtocolError_Permanent(t *testing.T) {
	assert.True(t, (&ProtocolError{Code: 4001}).Permanent())
	assert.False(t, (&ProtocolError{Code: 4100}).Permanent())
	assert.False(t, (&ProtocolError{Code: 4201}).Permanent())
}
