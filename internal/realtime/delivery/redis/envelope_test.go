package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dogeow-realtime/internal/realtime"
)

type published struct {
	channel string
	body    []byte
}

// fakeRedis records publishes; other commands are unused here.
type fakeRedis struct {
	published []published
	pingErr   error
}

func (f *fakeRedis) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (f *fakeRedis) Get(context.Context, string) (string, error)                   { return "", nil }
func (f *fakeRedis) Delete(context.Context, ...string) error                       { return nil }
func (f *fakeRedis) Exists(context.Context, string) (bool, error)                  { return false, nil }
func (f *fakeRedis) Subscribe(context.Context, ...string) *goredis.PubSub          { return nil }
func (f *fakeRedis) Close() error                                                  { return nil }
func (f *fakeRedis) GetClient() *goredis.Client                                    { return nil }

func (f *fakeRedis) Ping(context.Context) (time.Duration, error) {
	return time.Millisecond, f.pingErr
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) error {
	f.published = append(f.published, published{channel: channel, body: message.([]byte)})
	return nil
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		payload string
		want    realtime.Message
		wantErr bool
	}{
		{
			name:    "private channel",
			channel: "laravel_database_private-user.42.notifications",
			payload: `{"event":"notification.created","data":{"count":3},"socket":null}`,
			want: realtime.Message{
				Channel: "private-user.42.notifications",
				Event:   "notification.created",
				Data:    json.RawMessage(`{"count":3}`),
			},
		},
		{
			name:    "no prefix on channel",
			channel: "knowledge-index",
			payload: `{"event":"knowledge.index.updated","data":{}}`,
			want: realtime.Message{
				Channel: "knowledge-index",
				Event:   "knowledge.index.updated",
				Data:    json.RawMessage(`{}`),
			},
		},
		{name: "missing event", channel: "x", payload: `{"data":{}}`, wantErr: true},
		{name: "not json", channel: "x", payload: `nope`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeMessage(DefaultPrefix, tc.channel, []byte(tc.payload))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.Channel, got.Channel)
			assert.Equal(t, tc.want.Event, got.Event)
			assert.JSONEq(t, string(tc.want.Data), string(got.Data))
		})
	}
}

func TestPublisher_Publish(t *testing.T) {
	r := &fakeRedis{}
	p := NewPublisher(r, DefaultPrefix)

	err := p.Publish(context.Background(), realtime.UserNotificationsChannel(42), realtime.EventNotificationCreated,
		map[string]any{"notification": map[string]any{"id": "n1"}, "count": 1})
	require.NoError(t, err)

	require.Len(t, r.published, 1)
	assert.Equal(t, "laravel_database_private-user.42.notifications", r.published[0].channel)

	m, err := decodeMessage(DefaultPrefix, r.published[0].channel, r.published[0].body)
	require.NoError(t, err)
	assert.Equal(t, "notification.created", m.Event)
	assert.JSONEq(t, `{"notification":{"id":"n1"},"count":1}`, string(m.Data))
}

func TestPublisher_RejectsInvalidChannel(t *testing.T) {
	r := &fakeRedis{}
	err := NewPublisher(r, "").Publish(context.Background(), realtime.PublicChannel("bad channel!"), "x", nil)

	assert.ErrorIs(t, err, realtime.ErrInvalidChannel)
	assert.Empty(t, r.published)
}

func TestDialer_PingFailure(t *testing.T) {
	d := NewDialer(&fakeRedis{pingErr: errors.New("connection refused")}, DefaultPrefix, nil)

	_, err := d.Dial(context.Background(), "tok", func(realtime.Message) {})
	assert.Error(t, err)
}

func TestConn_LeaveBeforeJoinAndClose(t *testing.T) {
	d := NewDialer(&fakeRedis{}, DefaultPrefix, nil)
	c, err := d.Dial(context.Background(), "tok", func(realtime.Message) {})
	require.NoError(t, err)

	assert.NoError(t, c.Leave(context.Background(), realtime.KnowledgeIndexChannel()))
	assert.Equal(t, realtime.ConnStateConnected, c.State())
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, realtime.ConnStateClosed, c.State())
	assert.ErrorIs(t, c.Join(context.Background(), realtime.KnowledgeIndexChannel()), realtime.ErrConnectionClosed)
}
