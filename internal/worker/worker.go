package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/emomap/engine/internal/api"
	"github.com/emomap/engine/internal/audio"
	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/parser"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/internal/router"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/pkg/core"
)

// ErrNoPosition is returned by :ROUTE: when neither the command nor a
// previous :POSITION: supplied a starting point.
var ErrNoPosition = errors.New("no user position known")

// Publisher pushes engine output to the renderer. *stream.Link implements it.
type Publisher interface {
	PublishRoute(destinationID string, r core.RouteResult) error
	PublishAudioState(s core.AudioZoneState) error
	PublishPlaces(snap *places.Snapshot) error
	PublishPosition(v core.Vec3) error
}

// Telemetry records engine outcomes. *influx.Manager implements it.
type Telemetry interface {
	RecordRoute(destinationID string, result core.RouteResult)
	RecordZoneTransition(state core.AudioZoneState)
}

// Archive stores place exports off the device. *api.Client implements it.
type Archive interface {
	UploadPlaces(ctx context.Context, filePath string, meta api.UploadMetadata) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Index   *places.Index
	Router  *router.Router
	Audio   *audio.Controller
	Backend storage.Backend
	Parser  *parser.Parser
	Logger  *slog.Logger

	Publisher Publisher // optional
	Telemetry Telemetry // optional
	Archive   Archive   // optional

	ExportDir string
	SessionID string
}

// Manager owns the command handlers and the last known user position.
type Manager struct {
	deps Dependencies

	mu       sync.RWMutex
	position *core.Vec3
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	return &Manager{deps: deps}
}

// Position returns the last known user position.
func (m *Manager) Position() (core.Vec3, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.position == nil {
		return core.Vec3{}, false
	}
	return *m.position, true
}

func (m *Manager) setPosition(v core.Vec3) {
	m.mu.Lock()
	m.position = &v
	m.mu.Unlock()
}

// Status is the reply to :STATUS: and the monitor's periodic sample.
type Status struct {
	Places      int                 `json:"places"`
	Version     uint64              `json:"version"`
	Forbidden   int                 `json:"forbidden"`
	Preferred   int                 `json:"preferred"`
	HasPosition bool                `json:"hasPosition"`
	Latitude    float64             `json:"latitude,omitempty"`
	Longitude   float64             `json:"longitude,omitempty"`
	Audio       core.AudioZoneState `json:"audio"`
	Volume      float64             `json:"effectiveVolume"`
}

// Status returns a snapshot of the engine.
func (m *Manager) Status() Status {
	snap := m.deps.Index.Snapshot()
	s := Status{
		Places:    len(snap.All),
		Version:   snap.Version,
		Forbidden: len(snap.Forbidden),
		Preferred: len(snap.Preferred),
	}
	if pos, ok := m.Position(); ok {
		s.HasPosition = true
		s.Latitude, s.Longitude = geo.ToLatLon(pos)
	}
	if m.deps.Audio != nil {
		s.Audio = m.deps.Audio.State()
		s.Volume = s.Audio.EffectiveVolume()
	}
	return s
}

// LoadPlaces replaces the working set with the backend's places.
func (m *Manager) LoadPlaces() (uint64, error) {
	list, err := m.deps.Backend.ListPlaces()
	if err != nil {
		return 0, err
	}
	return m.applyPlaces(list), nil
}

// applyPlaces swaps the working set, then lets the renderer and the audio zone catch up.
func (m *Manager) applyPlaces(list []core.Place) uint64 {
	version := m.deps.Index.SetPlaces(list)
	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.PublishPlaces(m.deps.Index.Snapshot()); err != nil {
			m.deps.Logger.Warn("Failed to publish places", "error", err)
		}
	}
	if pos, ok := m.Position(); ok && m.deps.Audio != nil {
		m.deps.Audio.Update(pos)
	}
	return version
}

// upsert replaces or appends p in the working set.
func (m *Manager) upsert(p core.Place) uint64 {
	current := m.deps.Index.All()
	replaced := false
	for i := range current {
		if current[i].ID == p.ID {
			current[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, p)
	}
	return m.applyPlaces(current)
}

// remove drops the place with the given id from the working set.
func (m *Manager) remove(id string) (uint64, bool) {
	current := m.deps.Index.All()
	kept := current[:0]
	found := false
	for _, p := range current {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return 0, false
	}
	return m.applyPlaces(kept), true
}

// OnTransition is the audio controller's transition hook.
// It forwards the new state to the renderer and to telemetry.
func (m *Manager) OnTransition(_, to core.AudioZoneState) {
	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.PublishAudioState(to); err != nil {
			m.deps.Logger.Warn("Failed to publish audio state", "error", err)
		}
	}
	if m.deps.Telemetry != nil {
		m.deps.Telemetry.RecordZoneTransition(to)
	}
}
