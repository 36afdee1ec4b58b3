package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level zerolog.Level) (*DispatcherLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewDispatcherLogger(zerolog.New(&buf).Level(level)), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Debug(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.DebugLevel)
	dl.Debug("handling event", "command", ":POSITION:", "args", 2)

	entry := decode(t, buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "handling event", entry["message"])
	assert.Equal(t, ":POSITION:", entry["command"])
	assert.Equal(t, float64(2), entry["args"])
}

func TestDispatcherLogger_Info(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)
	dl.Info("places loaded", "count", 12)

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(12), entry["count"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.ErrorLevel)
	dl.Error("event failed", "command", ":ROUTE:", "error", errors.New("boom"))

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "dispatcher", entry["component"])
	assert.Equal(t, "boom", entry["error"])
}

func TestDispatcherLogger_FiltersBelowLevel(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)
	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_MalformedPairs(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.DebugLevel)
	dl.Debug("odd", 7, "x", "dangling", 42, "orphan")

	entry := decode(t, buf)
	assert.Equal(t, "x", entry["7"])
	assert.Equal(t, float64(42), entry["dangling"])
	assert.Equal(t, "orphan", entry[BadKey])
}
