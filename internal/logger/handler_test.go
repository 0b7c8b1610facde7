package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerForwardsFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(zerolog.New(&buf), zerolog.InfoLevel))

	log.With("run_id", "r1").WithGroup("diff").Info("Diff finished", "create", 3, "partial", true)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Diff finished", entry["message"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, float64(3), entry["diff.create"])
	assert.Equal(t, true, entry["diff.partial"])
}

func TestHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(zerolog.New(&buf), zerolog.InfoLevel))

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("Dependency cycle broken")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
}

func TestGetFallsBackToStderr(t *testing.T) {
	SetGlobal(nil, false)
	assert.NotNil(t, Get())
	assert.False(t, IsDebug())

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetGlobal(custom, true)
	t.Cleanup(func() { SetGlobal(nil, false) })
	assert.Same(t, custom, Get())
	assert.True(t, IsDebug())
}
