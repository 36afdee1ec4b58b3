package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/internal/util"
	"github.com/emomap/engine/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PlaceSource provides consistent snapshots of the place set.
type PlaceSource interface {
	Snapshot() *places.Snapshot
}

// TransitionFunc observes state changes. It runs after the controller lock is released.
type TransitionFunc func(from, to core.AudioZoneState)

// Dependencies holds the collaborators of a Controller.
type Dependencies struct {
	Places       PlaceSource
	Player       Player
	Library      *Library
	Logger       *slog.Logger
	OnTransition TransitionFunc // optional
}

// Controller derives the audio zone from the user's position and drives
// sequential playback. All state lives behind one mutex.
type Controller struct {
	deps Dependencies
	cfg  config.AudioConfig

	radius float64

	mu            sync.Mutex
	state         core.ZoneState
	activePlaceID string
	queue         []core.Emotion
	queuePos      int
	currentVolume float64
	masterVolume  float64
	// restoreMaster is the master volume to return to when leaving Silent.
	restoreMaster float64
	track         Track
	trackURL      string
	// generation invalidates callbacks of superseded tracks.
	generation uint64

	transitions metric.Int64Counter
	trackStarts metric.Int64Counter
	trackFails  metric.Int64Counter
}

// NewController creates a controller in the idle state.
func NewController(deps Dependencies, cfg config.AudioConfig) (*Controller, error) {
	if deps.Places == nil {
		return nil, fmt.Errorf("audio: place source is required")
	}
	if deps.Player == nil {
		deps.Player = NopPlayer{}
	}
	if deps.Library == nil {
		deps.Library = NewLibrary(cfg.Pools, cfg.Seed)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.InfluenceRadiusDeg <= 0 {
		return nil, fmt.Errorf("audio: influence radius must be positive, got %.2f", cfg.InfluenceRadiusDeg)
	}

	c := &Controller{
		deps:          deps,
		cfg:           cfg,
		radius:        geo.Degrees(cfg.InfluenceRadiusDeg),
		state:         core.StateIdle,
		currentVolume: 1,
		masterVolume:  1,
		restoreMaster: 1,
	}

	m := meter()
	var err error
	c.transitions, err = m.Int64Counter("audio.zone.transitions",
		metric.WithDescription("Audio zone state changes"))
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}
	c.trackStarts, err = m.Int64Counter("audio.tracks.started",
		metric.WithDescription("Tracks handed to the player"))
	if err != nil {
		return nil, fmt.Errorf("creating track counter: %w", err)
	}
	c.trackFails, err = m.Int64Counter("audio.tracks.failed",
		metric.WithDescription("Tracks that failed to load or play"))
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}

	return c, nil
}

// Weight is the influence of a place at the given angular distance.
func Weight(angle, radius float64) float64 {
	return geo.Smoothstep(radius, 0, angle)
}

// Update re-evaluates the zone for a new user position. It performs no I/O
// besides handing tracks to the player and does O(places) work.
func (c *Controller) Update(pos core.Vec3) {
	user, err := geo.Normalize(pos)
	if err != nil {
		c.deps.Logger.Warn("ignoring degenerate position", "error", err)
		return
	}
	snap := c.deps.Places.Snapshot()

	var closest *core.Place
	wMax := 0.0
	for i := range snap.All {
		p := &snap.All[i]
		if p.Position == nil {
			continue
		}
		w := Weight(geo.AngleBetween(user, *p.Position), c.radius)
		if w > wMax {
			wMax, closest = w, p
		}
	}

	c.mu.Lock()
	before := c.stateLocked()

	forbiddenClosest := closest != nil && snap.Thresholds.IsForbidden(closest.Intimacy)
	switch {
	case forbiddenClosest && wMax >= c.cfg.NeutralThreshold:
		c.enterSilentLocked(closest.ID)
	case c.state == core.StateSilent && (closest == nil || forbiddenClosest):
		// silence holds until the nearest place is one the user can bear
	case wMax < c.cfg.NeutralThreshold:
		c.neutralLocked(wMax)
	default:
		c.placeLocked(*closest, wMax)
	}

	after := c.stateLocked()
	c.mu.Unlock()

	c.notify(before, after)
}

func (c *Controller) enterSilentLocked(placeID string) {
	if c.state != core.StateSilent {
		c.restoreMaster = c.masterVolume
		c.masterVolume = 0
		c.stopTrackLocked()
		c.state = core.StateSilent
		c.queue = nil
		c.queuePos = 0
		c.deps.Logger.Info("entering silence", "place", placeID)
	}
	c.activePlaceID = placeID
}

func (c *Controller) leaveSilentLocked() {
	if c.state == core.StateSilent {
		c.masterVolume = c.restoreMaster
	}
}

func (c *Controller) neutralLocked(wMax float64) {
	if c.state == core.StateNeutralPlayback {
		c.currentVolume = math.Max(c.cfg.NeutralMinVolume, 1-2*wMax)
		c.applyVolumeLocked()
		if c.track == nil {
			c.startLocked()
		}
		return
	}

	c.leaveSilentLocked()
	c.stopTrackLocked()
	c.state = core.StateNeutralPlayback
	c.activePlaceID = core.NeutralPlaceID
	c.queue = []core.Emotion{core.EmotionEmptiness}
	c.queuePos = 0
	c.currentVolume = c.cfg.NeutralVolume
	c.deps.Logger.Debug("entering neutral playback")
	c.startLocked()
}

func (c *Controller) placeLocked(p core.Place, wMax float64) {
	c.currentVolume = util.Clamp01(wMax)

	if c.state == core.StatePlacePlayback && c.activePlaceID == p.ID {
		c.applyVolumeLocked()
		if c.track == nil {
			c.startLocked()
		}
		return
	}

	c.leaveSilentLocked()
	c.stopTrackLocked()
	c.state = core.StatePlacePlayback
	c.activePlaceID = p.ID
	c.queue = append([]core.Emotion(nil), p.Keywords...)
	if len(c.queue) == 0 {
		c.queue = []core.Emotion{core.EmotionEmptiness}
	}
	c.queuePos = 0
	c.deps.Logger.Debug("switching place playback", "place", p.ID, "queue", c.queue)
	c.startLocked()
}

// startLocked hands the track at queuePos to the player. Synchronous failures
// advance the queue a bounded number of times; if all fail the next tick retries.
func (c *Controller) startLocked() {
	if len(c.queue) == 0 {
		return
	}
	attempts := max(3, len(c.queue))
	for i := 0; i < attempts; i++ {
		keyword := c.queue[c.queuePos]
		c.generation++
		gen := c.generation

		url, err := c.deps.Library.Pick(keyword)
		if err == nil {
			var track Track
			track, err = c.deps.Player.Play(url, c.effectiveLocked(), TrackEvents{
				OnEnded: func() { c.trackDone(gen, nil) },
				OnError: func(err error) { c.trackDone(gen, err) },
			})
			if err == nil {
				c.track = track
				c.trackURL = url
				c.trackStarts.Add(context.Background(), 1,
					metric.WithAttributes(attribute.String("keyword", string(keyword))))
				return
			}
		}

		c.trackFails.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("keyword", string(keyword))))
		c.deps.Logger.Warn("track failed to start, skipping", "keyword", keyword, "url", url, "error", err)
		c.queuePos = (c.queuePos + 1) % len(c.queue)
	}
	c.track = nil
	c.trackURL = ""
}

// trackDone is the single transition for a finished or failed track.
func (c *Controller) trackDone(gen uint64, playErr error) {
	c.mu.Lock()
	if gen != c.generation || c.track == nil {
		c.mu.Unlock()
		return
	}
	if playErr != nil {
		c.trackFails.Add(context.Background(), 1)
		c.deps.Logger.Warn("track failed during playback, skipping", "url", c.trackURL, "error", playErr)
	}
	before := c.stateLocked()
	c.track = nil
	c.trackURL = ""
	c.queuePos = (c.queuePos + 1) % len(c.queue)
	c.startLocked()
	after := c.stateLocked()
	c.mu.Unlock()

	c.notify(before, after)
}

func (c *Controller) stopTrackLocked() {
	c.generation++
	if c.track != nil {
		c.track.Pause()
	}
	c.track = nil
	c.trackURL = ""
}

func (c *Controller) applyVolumeLocked() {
	if c.track != nil {
		c.track.SetVolume(c.effectiveLocked())
	}
}

func (c *Controller) effectiveLocked() float64 {
	return util.Clamp01(c.currentVolume) * util.Clamp01(c.masterVolume)
}

// SetMasterVolume sets the master volume. While silent the value is kept
// and applied once silence ends.
func (c *Controller) SetMasterVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v = util.Clamp01(v)
	if c.state == core.StateSilent {
		c.restoreMaster = v
		return
	}
	c.masterVolume = v
	c.restoreMaster = v
	c.applyVolumeLocked()
}

// StopAll stops playback and resets the controller to idle.
func (c *Controller) StopAll() {
	c.mu.Lock()
	before := c.stateLocked()
	c.stopTrackLocked()
	c.state = core.StateIdle
	c.activePlaceID = ""
	c.queue = nil
	c.queuePos = 0
	c.masterVolume = 1
	c.restoreMaster = 1
	c.currentVolume = 1
	after := c.stateLocked()
	c.mu.Unlock()

	c.deps.Logger.Info("audio stopped")
	c.notify(before, after)
}

// State returns a snapshot of the controller state.
func (c *Controller) State() core.AudioZoneState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// EffectiveVolume returns the clamped product of current and master volume.
func (c *Controller) EffectiveVolume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveLocked()
}

func (c *Controller) stateLocked() core.AudioZoneState {
	return core.AudioZoneState{
		State:         c.state,
		ActivePlaceID: c.activePlaceID,
		Queue:         append([]core.Emotion(nil), c.queue...),
		QueuePosition: c.queuePos,
		CurrentVolume: c.currentVolume,
		MasterVolume:  c.masterVolume,
		TrackURL:      c.trackURL,
		Playing:       c.track != nil,
	}
}

func (c *Controller) notify(before, after core.AudioZoneState) {
	if before.State == after.State && before.ActivePlaceID == after.ActivePlaceID {
		return
	}
	c.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("to", after.State.String())))
	if c.deps.OnTransition != nil {
		c.deps.OnTransition(before, after)
	}
}
