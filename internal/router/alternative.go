package router

import (
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/pkg/core"
)

// FindAlternative returns the most intimate place that beats dest's score
// and is reachable in principle. ok is false when there is none.
func FindAlternative(snap *places.Snapshot, dest core.Place) (core.Place, bool) {
	var best *core.Place
	for i := range snap.All {
		p := &snap.All[i]
		if p.ID == dest.ID || p.Position == nil {
			continue
		}
		if p.Intimacy <= dest.Intimacy || snap.Thresholds.IsForbidden(p.Intimacy) {
			continue
		}
		if best == nil || p.Intimacy > best.Intimacy {
			best = p
		}
	}
	if best == nil {
		return core.Place{}, false
	}
	return best.Clone(), true
}

// FindAlternative is the snapshot-taking form of the package function.
func (r *Router) FindAlternative(dest core.Place) (core.Place, bool) {
	return FindAlternative(r.deps.Places.Snapshot(), dest)
}

// ShouldOfferReplacement reports whether the user should be offered another
// destination instead of dest.
func (r *Router) ShouldOfferReplacement(dest core.Place) bool {
	return r.deps.Places.Snapshot().Thresholds.IsForbidden(dest.Intimacy)
}
