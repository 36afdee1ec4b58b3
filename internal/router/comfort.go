package router

import (
	"math"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/pkg/core"
)

// Comfort weights per zone tier.
const (
	weightDefault     = 1.0
	weightNeutral     = 10.0
	weightComfortable = 0.5
	weightWelcoming   = 0.1
)

// ComfortWeight returns how costly it feels to pass through p: the lowest
// tier weight among places within the comfort radius, or 1 when none is.
// Places in the uncomfortable tier or below make it +Inf.
func (r *Router) ComfortWeight(p core.Vec3) float64 {
	return r.comfortWeight(r.deps.Places.Snapshot(), p)
}

func (r *Router) comfortWeight(snap *places.Snapshot, p core.Vec3) float64 {
	w := math.Inf(1)
	inRange := false
	for _, place := range snap.All {
		if place.Position == nil {
			continue
		}
		if geo.AngleBetween(p, *place.Position) >= r.comfortRadius {
			continue
		}
		var pw float64
		switch snap.Thresholds.Classify(place.Intimacy) {
		case core.ZoneForbidden, core.ZoneUncomfortable:
			return math.Inf(1)
		case core.ZoneNeutral:
			pw = weightNeutral
		case core.ZoneComfortable:
			pw = weightComfortable
		default:
			pw = weightWelcoming
		}
		w = math.Min(w, pw)
		inRange = true
	}
	if !inRange {
		return weightDefault
	}
	return w
}

// comfortCost sums segment angles weighted by the comfort at each segment start.
// Samples with infinite weight are counted instead of summed.
func (r *Router) comfortCost(snap *places.Snapshot, path []core.Vec3) (float64, int) {
	var cost float64
	uncomfortable := 0
	for i := 0; i < len(path); i++ {
		w := r.comfortWeight(snap, path[i])
		if math.IsInf(w, 1) {
			uncomfortable++
			continue
		}
		if i < len(path)-1 {
			cost += w * geo.AngleBetween(path[i], path[i+1])
		}
	}
	return cost, uncomfortable
}
