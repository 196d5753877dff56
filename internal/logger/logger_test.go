package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLevel("loud")
	assert.Error(t, err)
}

func TestObjFieldsReachZap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.WarnObj("backend call failed", "backend_error", map[string]any{
		"article_id": int64(7),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "backend call failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "backend_error", ctx["event"])
	assert.EqualValues(t, 7, ctx["article_id"])
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	assert.IsType(t, NopLogger{}, Ensure(nil))

	core, _ := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))
	assert.Same(t, l, Ensure(l))
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "chatty"})
	assert.Error(t, err)

	l, err := New(Options{Level: "debug", Format: "console"})
	require.NoError(t, err)
	l.With("component", "test").Debug("hello")
}
