package router

import (
	"sort"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/pkg/core"
)

type waypoint struct {
	place    core.Place
	pos      core.Vec3
	fraction float64
}

// selectWaypoints picks preferred places that lie roughly on the way.
func (r *Router) selectWaypoints(snap *places.Snapshot, user, dest core.Vec3, destID string) []waypoint {
	if r.cfg.MaxWaypoints <= 0 || len(snap.Preferred) == 0 {
		return nil
	}
	total := geo.AngleBetween(user, dest)
	if total < geo.SlerpEpsilon {
		return nil
	}
	mid := geo.Midpoint(user, dest)

	var candidates []waypoint
	for _, p := range snap.Preferred {
		if p.Position == nil || p.ID == destID {
			continue
		}
		pos, err := geo.Normalize(*p.Position)
		if err != nil {
			continue
		}
		if geo.AngleBetween(pos, mid) > r.corridor {
			continue
		}
		f := geo.AngleBetween(user, pos) / total
		if f <= r.cfg.MinFraction || f >= r.cfg.MaxFraction {
			continue
		}
		candidates = append(candidates, waypoint{place: p, pos: pos, fraction: f})
	}

	ordered := orderCandidates(candidates, r.cfg.BandWidth)
	if len(ordered) > r.cfg.MaxWaypoints {
		ordered = ordered[:r.cfg.MaxWaypoints]
	}
	return ordered
}

// orderCandidates sorts by fraction along the path, then groups candidates whose
// fraction lies within band of the group's first member and orders each group
// by descending intimacy.
func orderCandidates(c []waypoint, band float64) []waypoint {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].fraction != c[j].fraction {
			return c[i].fraction < c[j].fraction
		}
		return c[i].place.ID < c[j].place.ID
	})

	out := make([]waypoint, 0, len(c))
	for start := 0; start < len(c); {
		end := start + 1
		for end < len(c) && c[end].fraction-c[start].fraction <= band {
			end++
		}
		group := c[start:end]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].place.Intimacy > group[j].place.Intimacy
		})
		out = append(out, group...)
		start = end
	}
	return out
}
