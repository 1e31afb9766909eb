package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &zapLogger{cfg: &ZapConfig{}, sugarLogger: zap.New(core).Sugar()}, logs
}

func TestWithFields_TagsLines(t *testing.T) {
	l, logs := newObserved()

	ctx := WithFields(context.Background(), l, "handle", "h-1")
	l.Infof(ctx, "opened %s", "conn")
	l.Info(context.Background(), "untagged")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "opened conn", entries[0].Message)
	assert.Equal(t, map[string]any{"handle": "h-1"}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
}

func TestWithFields_SurvivesWithoutCancel(t *testing.T) {
	l, logs := newObserved()

	parent, cancel := context.WithCancel(context.Background())
	ctx := context.WithoutCancel(WithFields(parent, l, "handle", "h-2"))
	cancel()
	l.Warn(ctx, "still tagged")

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "h-2", logs.All()[0].ContextMap()["handle"])
}

type otherLogger struct{ Logger }

func TestWithFields_ForeignLoggerIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithFields(ctx, otherLogger{}, "k", "v"))
}
