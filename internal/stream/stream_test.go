package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/pkg/core"
	"github.com/emomap/engine/pkg/streaming"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer upgrades to WebSocket, records received envelopes, and acks hello.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeHello {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestInitSendsHello(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	l := New(Config{URL: wsURL(srv), Secret: "s3cret", Version: "1.2.3"}, nil)
	require.NoError(t, l.Init())
	defer l.Close()

	msgs := ml.all()
	require.NotEmpty(t, msgs)
	assert.Equal(t, streaming.TypeHello, msgs[0].Type)

	var hello streaming.HelloPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &hello))
	assert.Equal(t, l.SessionID(), hello.SessionID)
	assert.Equal(t, "1.2.3", hello.EngineVersion)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestInit_DialFailure(t *testing.T) {
	l := New(Config{URL: "ws://127.0.0.1:1/nowhere"}, nil)
	assert.Error(t, l.Init())
}

func TestPublishMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	l := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, l.Init())

	a, _ := geo.FromLatLon(0, 0)
	b, _ := geo.FromLatLon(0, 10)
	require.NoError(t, l.PublishRoute("dest", core.RouteResult{Valid: true, Path: []core.Vec3{a, b}}))
	require.NoError(t, l.PublishAudioState(core.AudioZoneState{State: core.StateNeutralPlayback, CurrentVolume: 0.7, MasterVolume: 1}))
	require.NoError(t, l.PublishPlaces(&places.Snapshot{Version: 3, All: make([]core.Place, 4)}))
	require.NoError(t, l.PublishPosition(a))

	require.Eventually(t, func() bool {
		return ml.count(streaming.TypePosition) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, ml.count(streaming.TypeRouteResult))
	assert.Equal(t, 1, ml.count(streaming.TypeAudioState))
	assert.Equal(t, 1, ml.count(streaming.TypePlacesSet))

	for _, env := range ml.all() {
		if env.Type != streaming.TypeAudioState {
			continue
		}
		var p streaming.AudioStatePayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, core.StateNeutralPlayback, p.State.State)
		assert.InDelta(t, 0.7, p.EffectiveVolume, 1e-12)
	}

	sent, dropped := l.Stats()
	assert.GreaterOrEqual(t, sent, uint64(5))
	assert.Zero(t, dropped)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")
}

func TestNewRoutePayload(t *testing.T) {
	a, _ := geo.FromLatLon(10, 20)
	b, _ := geo.FromLatLon(11, 21)

	p := NewRoutePayload("dest", core.RouteResult{Valid: true, Path: []core.Vec3{a, b}})
	assert.Equal(t, "dest", p.DestinationID)
	require.Len(t, p.LatLon, 2)
	assert.InDelta(t, 10, p.LatLon[0][0], 1e-9)
	assert.InDelta(t, 21, p.LatLon[1][1], 1e-9)
	assert.True(t, strings.HasPrefix(p.WKT, "LINESTRING"))

	failed := NewRoutePayload("dest", core.Failed(core.ReasonMuteZoneDestination))
	assert.Empty(t, failed.LatLon)
	assert.Empty(t, failed.WKT)
}

func TestSend_DropsWhenQueueFull(t *testing.T) {
	c := newConnection(testLogger(), 1)
	assert.True(t, c.send([]byte("a")))
	assert.False(t, c.send([]byte("b")))
	assert.Equal(t, uint64(1), c.dropped.Load())
}
