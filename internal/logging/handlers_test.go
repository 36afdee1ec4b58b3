package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler     { return h }
func (h failingHandler) WithGroup(string) slog.Handler          { return h }

func textHandler(buf *bytes.Buffer, lvl slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: lvl})
}

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	multi := NewMultiHandler(nil, textHandler(&info, slog.LevelInfo), nil, textHandler(&debug, slog.LevelDebug))
	require.Len(t, multi.handlers, 2)

	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))

	log := slog.New(multi)
	log.Debug("route sampled")
	log.Info("zone changed")

	assert.NotContains(t, info.String(), "route sampled")
	assert.Contains(t, info.String(), "zone changed")
	assert.Contains(t, debug.String(), "route sampled")
	assert.Contains(t, debug.String(), "zone changed")
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(textHandler(&buf, slog.LevelInfo))

	assert.Same(t, multi, multi.WithGroup(""))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "router")})).
		WithGroup("route").Info("computed", "valid", true)
	assert.Contains(t, buf.String(), "component=router")
	assert.Contains(t, buf.String(), "route.valid=true")
}

func TestMultiHandler_FailingSinkDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(failingHandler{}, textHandler(&buf, slog.LevelInfo))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := multi.Handle(context.Background(), r)

	assert.ErrorContains(t, err, "sink down")
	assert.Contains(t, buf.String(), "still delivered")
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	h := NewContextHandler(textHandler(&buf, slog.LevelInfo), func() []slog.Attr {
		calls++
		return []slog.Attr{slog.String("zone", "place"), slog.String("activePlace", "p1")}
	})

	log := slog.New(h).With("component", "audio")
	log.Debug("filtered")
	log.Info("transition", "zone", "caller")

	assert.Equal(t, 1, calls, "provider only runs for enabled records")
	out := buf.String()
	assert.Contains(t, out, "component=audio")
	assert.Contains(t, out, "zone=caller")
	assert.Contains(t, out, "engine.zone=place")
	assert.Contains(t, out, "engine.activePlace=p1")
}

func TestContextHandler_EmptyOrNilProvider(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewContextHandler(textHandler(&buf, slog.LevelInfo), nil)).Info("a")
	slog.New(NewContextHandler(textHandler(&buf, slog.LevelInfo), func() []slog.Attr { return nil })).Info("b")

	assert.NotContains(t, buf.String(), EngineGroup)
}
