package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Config{Level: "info", OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Loaded bundle", zap.String("path", "/srv/a.bundle"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Loaded bundle"`)
	assert.Contains(t, string(data), `"path":"/srv/a.bundle"`)
	assert.Contains(t, string(data), `"service":"bundlehost"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestFromSettings(t *testing.T) {
	assert.True(t, FromSettings("debug", false).Core().Enabled(zapcore.DebugLevel))
	assert.False(t, FromSettings("", false).Core().Enabled(zapcore.DebugLevel))
	assert.True(t, FromSettings("", true).Core().Enabled(zapcore.DebugLevel))

	fallback := FromSettings("chatty", false)
	assert.True(t, fallback.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, fallback.Core().Enabled(zapcore.DebugLevel))
}

func TestDefaults(t *testing.T) {
	assert.NotNil(t, NewDefault().Logger)
	assert.NotNil(t, NewDevelopment().Logger)
	assert.NotNil(t, NewNop().Named("loader"))
}
