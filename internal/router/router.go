package router

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HeightFunc returns the terrain height at a position.
// It must be synchronous and free of side effects.
type HeightFunc func(core.Vec3) float64

// PlaceSource provides consistent snapshots of the place set.
type PlaceSource interface {
	Snapshot() *places.Snapshot
}

// Dependencies holds the collaborators of a Router.
type Dependencies struct {
	Places PlaceSource
	Height HeightFunc // optional
	Logger *slog.Logger
}

// Router computes routes between the user and a destination place.
// It keeps no state between calls besides its configuration.
type Router struct {
	deps Dependencies
	cfg  config.RouterConfig

	forbiddenRadius float64
	corridor        float64
	comfortRadius   float64

	routes metric.Int64Counter
}

// New creates a Router.
func New(deps Dependencies, cfg config.RouterConfig) (*Router, error) {
	if deps.Places == nil {
		return nil, fmt.Errorf("router: place source is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Samples < 1 {
		return nil, fmt.Errorf("router: samples must be positive, got %d", cfg.Samples)
	}
	if cfg.SlopeFallback < cfg.SlopeStrict {
		return nil, fmt.Errorf("router: fallback slope %.3f is below strict slope %.3f", cfg.SlopeFallback, cfg.SlopeStrict)
	}

	r := &Router{
		deps:            deps,
		cfg:             cfg,
		forbiddenRadius: geo.Degrees(cfg.ForbiddenRadiusDeg),
		corridor:        geo.Degrees(cfg.CorridorDeg),
		comfortRadius:   geo.Degrees(cfg.ComfortRadiusDeg),
	}

	var err error
	r.routes, err = meter().Int64Counter(
		"router.routes",
		metric.WithDescription("Routes computed, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating routes counter: %w", err)
	}

	return r, nil
}

// ComputeRoute finds a route from user to dest.
// Expected failures are reported through RouteResult, never as errors.
func (r *Router) ComputeRoute(user core.Vec3, dest *core.Place) core.RouteResult {
	snap := r.deps.Places.Snapshot()
	res := r.compute(snap, user, dest)
	if !res.Valid && dest != nil {
		if alt, ok := FindAlternative(snap, *dest); ok {
			res.Alternative = &alt
		}
	}
	r.record(res)
	return res
}

// RouteTo looks the destination up by id and computes a route to it.
func (r *Router) RouteTo(user core.Vec3, placeID string) core.RouteResult {
	snap := r.deps.Places.Snapshot()
	dest, ok := snap.Get(placeID)
	if !ok {
		res := core.Failed(core.ReasonInvalidDestination)
		r.record(res)
		return res
	}
	dest = dest.Clone()
	res := r.compute(snap, user, &dest)
	if !res.Valid {
		if alt, ok := FindAlternative(snap, dest); ok {
			res.Alternative = &alt
		}
	}
	r.record(res)
	return res
}

func (r *Router) compute(snap *places.Snapshot, user core.Vec3, dest *core.Place) core.RouteResult {
	log := r.deps.Logger

	if dest == nil || dest.Position == nil {
		log.Info("route rejected: destination has no position")
		return core.Failed(core.ReasonInvalidDestination)
	}
	destPos, err := geo.Normalize(*dest.Position)
	if err != nil {
		log.Warn("route rejected: destination position is degenerate", "place", dest.ID, "error", err)
		return core.Failed(core.ReasonInvalidDestination)
	}
	userPos, err := geo.Normalize(user)
	if err != nil {
		log.Warn("route rejected: user position is degenerate", "error", err)
		return core.Failed(core.ReasonInvalidDestination)
	}

	if snap.Thresholds.IsForbidden(dest.Intimacy) {
		log.Info("route rejected: destination is a mute zone", "place", dest.ID, "intimacy", dest.Intimacy)
		return core.Failed(core.ReasonMuteZoneDestination)
	}

	waypoints := r.selectWaypoints(snap, userPos, destPos, dest.ID)
	anchors := make([]core.Vec3, 0, len(waypoints)+2)
	anchors = append(anchors, userPos)
	ids := make([]string, 0, len(waypoints))
	for _, w := range waypoints {
		anchors = append(anchors, w.pos)
		ids = append(ids, w.place.ID)
	}
	anchors = append(anchors, destPos)

	path := samplePath(anchors, r.cfg.Samples)

	var heights []float64
	if r.deps.Height != nil {
		heights = make([]float64, len(path))
		for i, p := range path {
			heights[i] = r.deps.Height(p)
		}
	}

	strict := r.validate(snap, path, heights, r.cfg.SlopeStrict)
	isFallback := false
	if strict.reason != core.ReasonNone {
		log.Debug("strict validation failed", "reason", strict.reason, "sample", strict.index)
		if heights == nil {
			// slope is always zero without terrain, so a retry cannot change the outcome
			return core.Failed(strict.reason)
		}
		relaxed := r.validate(snap, path, heights, r.cfg.SlopeFallback)
		if relaxed.reason != core.ReasonNone {
			reason := relaxed.reason
			if strict.reason == core.ReasonMuteZone {
				reason = core.ReasonMuteZone
			}
			log.Info("route rejected", "reason", reason, "place", dest.ID)
			return core.Failed(reason)
		}
		isFallback = true
	}

	res := core.RouteResult{
		Valid:      true,
		Path:       path,
		IsFallback: isFallback,
		Waypoints:  ids,
		TotalAngle: geo.AngleBetween(userPos, destPos),
	}
	if isFallback {
		res.Message = core.SteepTerrainAdvisory
	}
	res.ComfortCost, res.UncomfortableSamples = r.comfortCost(snap, path)

	log.Debug("route computed",
		"place", dest.ID,
		"samples", len(path),
		"waypoints", len(ids),
		"fallback", isFallback,
		"comfortCost", res.ComfortCost)
	return res
}

type failure struct {
	reason core.FailureReason
	index  int
}

// validate walks the path once. Mute zones are checked at every sample,
// slope between every consecutive pair.
func (r *Router) validate(snap *places.Snapshot, path []core.Vec3, heights []float64, slopeLimit float64) failure {
	for i := range path {
		if r.inForbiddenZone(snap, path[i]) {
			return failure{reason: core.ReasonMuteZone, index: i}
		}
		if i == len(path)-1 || heights == nil {
			continue
		}
		if Slope(path[i], path[i+1], heights[i], heights[i+1]) > slopeLimit {
			return failure{reason: core.ReasonSlopeExceeded, index: i}
		}
	}
	return failure{}
}

func (r *Router) inForbiddenZone(snap *places.Snapshot, p core.Vec3) bool {
	for _, zone := range snap.Forbidden {
		if zone.Position == nil {
			continue
		}
		if geo.AngleBetween(p, *zone.Position) < r.forbiddenRadius {
			return true
		}
	}
	return false
}

// Slope is the height change per radian between two samples.
// Samples closer than the slerp epsilon have zero slope.
func Slope(a, b core.Vec3, ha, hb float64) float64 {
	angle := geo.AngleBetween(a, b)
	if angle < geo.SlerpEpsilon {
		return 0
	}
	return math.Abs(hb-ha) / angle
}

func (r *Router) record(res core.RouteResult) {
	outcome := "ok"
	if !res.Valid {
		outcome = string(res.Reason)
	}
	r.routes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("fallback", res.IsFallback),
	))
}
