package streaming

import (
	"encoding/json"

	"github.com/emomap/engine/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeHello       = "hello"
	TypeGoodbye     = "goodbye"
	TypeRouteResult = "route_result"
	TypeAudioState  = "audio_state"
	TypePlacesSet   = "places_set"
	TypePosition    = "position"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload opens a session with the renderer.
type HelloPayload struct {
	SessionID     string `json:"sessionId"`
	EngineVersion string `json:"engineVersion"`
}

// RoutePayload carries a route result plus render-ready projections of its path.
type RoutePayload struct {
	DestinationID string           `json:"destinationId"`
	Result        core.RouteResult `json:"result"`
	LatLon        [][2]float64     `json:"latLon,omitempty"`
	WKT           string           `json:"wkt3857,omitempty"`
}

// AudioStatePayload is sent whenever the audio zone changes.
type AudioStatePayload struct {
	State           core.AudioZoneState `json:"state"`
	EffectiveVolume float64             `json:"effectiveVolume"`
}

// PlacesSetPayload announces a new place snapshot.
type PlacesSetPayload struct {
	Version   uint64 `json:"version"`
	Count     int    `json:"count"`
	Forbidden int    `json:"forbidden"`
	Preferred int    `json:"preferred"`
}

// PositionPayload echoes the user's current position.
type PositionPayload struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Position  core.Vec3 `json:"position"`
}
