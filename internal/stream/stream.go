// Package stream pushes route results and audio state to the rendering
// client over a WebSocket. Every publish is fire-and-forget except the
// session hello, which waits for the renderer's ack.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/pkg/core"
	"github.com/emomap/engine/pkg/streaming"
	"github.com/google/uuid"
)

// Config holds WebSocket link configuration.
type Config struct {
	URL       string
	Secret    string
	QueueSize int
	Version   string
}

// Link is the engine side of the renderer connection.
type Link struct {
	conn      *connection
	cfg       Config
	sessionID string
}

// New creates a link; nothing is dialed until Init.
func New(cfg Config, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		conn:      newConnection(logger, cfg.QueueSize),
		cfg:       cfg,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this engine run to the renderer.
func (l *Link) SessionID() string {
	return l.sessionID
}

// Init connects and announces the session.
func (l *Link) Init() error {
	if err := l.conn.dial(l.cfg.URL, l.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(streaming.TypeHello, streaming.HelloPayload{
		SessionID:     l.sessionID,
		EngineVersion: l.cfg.Version,
	})
	if err != nil {
		return err
	}

	l.conn.mu.Lock()
	l.conn.hello = data
	l.conn.mu.Unlock()

	return l.conn.sendAndWait(data, streaming.TypeHello, ackTimeout)
}

// Close says goodbye and disconnects.
func (l *Link) Close() error {
	_ = l.sendEnvelope(streaming.TypeGoodbye, nil)
	return l.conn.close()
}

// Stats returns how many messages were written and dropped so far.
func (l *Link) Stats() (sent, dropped uint64) {
	return l.conn.sent.Load(), l.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (l *Link) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	l.conn.send(data)
	return nil
}

// PublishRoute sends a route result with its path projected for drawing.
func (l *Link) PublishRoute(destinationID string, r core.RouteResult) error {
	return l.sendEnvelope(streaming.TypeRouteResult, NewRoutePayload(destinationID, r))
}

// NewRoutePayload attaches lat/lon and EPSG:3857 WKT renderings of the path.
func NewRoutePayload(destinationID string, r core.RouteResult) streaming.RoutePayload {
	p := streaming.RoutePayload{
		DestinationID: destinationID,
		Result:        r,
	}
	if len(r.Path) > 0 {
		p.LatLon = geo.PathLatLon(r.Path)
		p.WKT = geo.PathToWKT(r.Path)
	}
	return p
}

// PublishAudioState sends the current audio zone.
func (l *Link) PublishAudioState(s core.AudioZoneState) error {
	return l.sendEnvelope(streaming.TypeAudioState, streaming.AudioStatePayload{
		State:           s,
		EffectiveVolume: s.EffectiveVolume(),
	})
}

// PublishPlaces announces a new place snapshot.
func (l *Link) PublishPlaces(snap *places.Snapshot) error {
	return l.sendEnvelope(streaming.TypePlacesSet, streaming.PlacesSetPayload{
		Version:   snap.Version,
		Count:     len(snap.All),
		Forbidden: len(snap.Forbidden),
		Preferred: len(snap.Preferred),
	})
}

// PublishPosition echoes the user's position.
func (l *Link) PublishPosition(v core.Vec3) error {
	lat, lon := geo.ToLatLon(v)
	return l.sendEnvelope(streaming.TypePosition, streaming.PositionPayload{
		Latitude:  lat,
		Longitude: lon,
		Position:  v,
	})
}
