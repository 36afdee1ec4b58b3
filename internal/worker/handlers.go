package worker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/emomap/engine/internal/audio"
	"github.com/emomap/engine/internal/dispatcher"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/internal/stream"
	"github.com/emomap/engine/internal/util"
	"github.com/emomap/engine/pkg/core"
	"github.com/emomap/engine/pkg/streaming"
)

// Command names accepted on the command line.
const (
	CmdPlacesSet     = ":PLACES:SET:"
	CmdPlacesReload  = ":PLACES:RELOAD:"
	CmdPlacesEmotion = ":PLACES:EMOTION:"
	CmdPlacesExport  = ":PLACES:EXPORT:"
	CmdPlaceSave     = ":PLACE:SAVE:"
	CmdPlaceDelete   = ":PLACE:DELETE:"
	CmdPosition      = ":POSITION:"
	CmdRoute         = ":ROUTE:"
	CmdAudioVolume   = ":AUDIO:VOLUME:"
	CmdAudioStop     = ":AUDIO:STOP:"
	CmdStatus        = ":STATUS:"

	// CmdAudioTransition carries a core.AudioZoneState payload from the controller hook.
	CmdAudioTransition = ":AUDIO:TRANSITION:"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Place set changes - sync, later commands must see them
	d.Register(CmdPlacesSet, m.handlePlacesSet, dispatcher.Logged())
	d.Register(CmdPlacesReload, m.handlePlacesReload, dispatcher.Logged())
	d.Register(CmdPlaceSave, m.handlePlaceSave, dispatcher.Logged())
	d.Register(CmdPlaceDelete, m.handlePlaceDelete, dispatcher.Logged())
	d.Register(CmdPlacesEmotion, m.handlePlacesEmotion, dispatcher.Logged())
	d.Register(CmdPlacesExport, m.handlePlacesExport, dispatcher.Logged())

	// Navigation
	d.Register(CmdPosition, m.handlePosition)
	d.Register(CmdRoute, m.handleRoute, dispatcher.Logged())

	// Audio
	d.Register(CmdAudioVolume, m.handleAudioVolume, dispatcher.Logged())
	d.Register(CmdAudioStop, m.handleAudioStop, dispatcher.Logged())

	d.Register(CmdStatus, m.handleStatus)

	// Transition fan-out - buffered, publishing may block on the socket
	d.Register(CmdAudioTransition, m.handleAudioTransition, dispatcher.Buffered(256))
}

// PlacesReply is returned by commands that change the working set.
type PlacesReply struct {
	Version uint64      `json:"version"`
	Count   int         `json:"count"`
	Place   *core.Place `json:"place,omitempty"`
}

// RouteReply is the :ROUTE: result with renderer geometry attached.
type RouteReply struct {
	streaming.RoutePayload
	OfferReplacement bool `json:"offerReplacement"`
}

func (m *Manager) placesReply(version uint64, p *core.Place) PlacesReply {
	return PlacesReply{Version: version, Count: m.deps.Index.Len(), Place: p}
}

func (m *Manager) handlePlacesSet(e dispatcher.Event) (any, error) {
	list, err := m.deps.Parser.ParsePlaces(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to set places: %w", err)
	}
	return m.placesReply(m.applyPlaces(list), nil), nil
}

func (m *Manager) handlePlacesReload(e dispatcher.Event) (any, error) {
	version, err := m.LoadPlaces()
	if err != nil {
		return nil, fmt.Errorf("failed to reload places: %w", err)
	}
	return m.placesReply(version, nil), nil
}

func (m *Manager) handlePlaceSave(e dispatcher.Event) (any, error) {
	p, err := m.deps.Parser.ParsePlace(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to save place: %w", err)
	}
	if err := m.deps.Backend.SavePlace(&p); err != nil {
		return nil, fmt.Errorf("failed to save place: %w", err)
	}
	version := m.upsert(p)
	return m.placesReply(version, &p), nil
}

func (m *Manager) handlePlaceDelete(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseID(e.Args, CmdPlaceDelete)
	if err != nil {
		return nil, err
	}

	// A place set by :PLACES:SET: may exist only in the working set.
	stored := m.deps.Backend.DeletePlace(id)
	if stored != nil && !errors.Is(stored, storage.ErrPlaceNotFound) {
		return nil, fmt.Errorf("failed to delete place %s: %w", id, stored)
	}
	version, inIndex := m.remove(id)
	if stored != nil && !inIndex {
		return nil, fmt.Errorf("failed to delete place %s: %w", id, stored)
	}
	if !inIndex {
		version = m.deps.Index.Snapshot().Version
	}
	return m.placesReply(version, nil), nil
}

func (m *Manager) handlePlacesEmotion(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s requires a keyword", CmdPlacesEmotion)
	}
	k, err := core.ParseEmotion(util.TrimQuotes(e.Args[0]))
	if err != nil {
		return nil, err
	}
	list, err := storage.PlacesByEmotion(m.deps.Backend, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	return list, nil
}

func (m *Manager) handlePosition(e dispatcher.Event) (any, error) {
	pos, err := m.deps.Parser.ParsePosition(e.Args)
	if err != nil {
		return nil, err
	}
	m.setPosition(pos)

	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.PublishPosition(pos); err != nil {
			m.deps.Logger.Debug("Failed to publish position", "error", err)
		}
	}
	if m.deps.Audio == nil {
		return nil, nil
	}
	m.deps.Audio.Update(pos)
	return m.deps.Audio.State(), nil
}

func (m *Manager) handleRoute(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParseRoute(e.Args)
	if err != nil {
		return nil, err
	}

	var user core.Vec3
	if req.User != nil {
		user = *req.User
	} else {
		pos, ok := m.Position()
		if !ok {
			return nil, ErrNoPosition
		}
		user = pos
	}

	result := m.deps.Router.RouteTo(user, req.PlaceID)
	reply := RouteReply{RoutePayload: stream.NewRoutePayload(req.PlaceID, result)}
	if dest, ok := m.deps.Index.Get(req.PlaceID); ok {
		reply.OfferReplacement = m.deps.Router.ShouldOfferReplacement(dest)
	}

	if !result.Valid {
		m.deps.Logger.Info("Route not available",
			"destination", req.PlaceID, "reason", string(result.Reason))
	}
	if m.deps.Telemetry != nil {
		m.deps.Telemetry.RecordRoute(req.PlaceID, result)
	}
	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.PublishRoute(req.PlaceID, result); err != nil {
			m.deps.Logger.Warn("Failed to publish route", "error", err)
		}
	}
	return reply, nil
}

func (m *Manager) handleAudioVolume(e dispatcher.Event) (any, error) {
	v, err := m.deps.Parser.ParseVolume(e.Args)
	if err != nil {
		return nil, err
	}
	if m.deps.Audio == nil {
		return nil, nil
	}
	m.deps.Audio.SetMasterVolume(v)
	return m.deps.Audio.State(), nil
}

func (m *Manager) handleAudioStop(e dispatcher.Event) (any, error) {
	if m.deps.Audio == nil {
		return nil, nil
	}
	m.deps.Audio.StopAll()
	return m.deps.Audio.State(), nil
}

func (m *Manager) handleStatus(e dispatcher.Event) (any, error) {
	return m.Status(), nil
}

func (m *Manager) handleAudioTransition(e dispatcher.Event) (any, error) {
	state, ok := e.Payload.(core.AudioZoneState)
	if !ok {
		return nil, fmt.Errorf("%s expects an audio state payload, got %T", CmdAudioTransition, e.Payload)
	}
	m.OnTransition(core.AudioZoneState{}, state)
	return nil, nil
}

// TransitionHook returns an audio.TransitionFunc that queues transitions on d.
func TransitionHook(d *dispatcher.Dispatcher, logger *slog.Logger) audio.TransitionFunc {
	return func(_, to core.AudioZoneState) {
		if _, err := d.Dispatch(dispatcher.Event{Command: CmdAudioTransition, Payload: to}); err != nil {
			logger.Debug("Dropped audio transition", "error", err)
		}
	}
}
