package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fitquest/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNopBeforeInit(t *testing.T) {
	restore := Replace(zap.NewNop())
	defer restore()

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	assert.NotNil(t, With(zap.String("key", "value")))
	assert.NotNil(t, Named("test"))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestReplaceCapturesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	Warn("handler failed", zap.String("handler", "league"))
	Named("eventbus").Info("published")

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "handler failed", entries[0].Message)
	assert.Equal(t, "league", entries[0].ContextMap()["handler"])
	assert.Equal(t, "eventbus", entries[1].ContextMap()["component"])
}

func TestFromContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	ctx := ContextWithRequestID(context.Background(), "req-42")
	FromContext(ctx).Info("request")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestDynamicLogLevel(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "debug", Output: "stdout"}, "development"))
	defer Sync()

	assert.True(t, atomLevel.Enabled(zapcore.DebugLevel))
	UpdateLevel("info")
	assert.False(t, atomLevel.Enabled(zapcore.DebugLevel))
	assert.True(t, atomLevel.Enabled(zapcore.InfoLevel))
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fitquest.log")

	err := Init(&config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	}, "production")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		Info("log entry", zap.Int("entry", i))
	}
	require.NoError(t, Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
