// Package places holds the working set of places shared by the router and the audio controller.
package places

import (
	"sync"

	"github.com/emomap/engine/pkg/core"
)

// Snapshot is an immutable view of the place set at one version.
// Callers must not modify the slices or the places they contain.
type Snapshot struct {
	Version    uint64
	Thresholds core.Thresholds
	All        []core.Place
	Forbidden  []core.Place
	Preferred  []core.Place
}

// Get looks up a place by id within the snapshot.
func (s *Snapshot) Get(id string) (core.Place, bool) {
	for _, p := range s.All {
		if p.ID == id {
			return p, true
		}
	}
	return core.Place{}, false
}

// Index owns the current place set.
// SetPlaces swaps in a new snapshot; readers keep whatever snapshot they already hold.
type Index struct {
	mu         sync.RWMutex
	thresholds core.Thresholds
	snap       *Snapshot
}

// NewIndex creates an empty index classifying with the given thresholds.
func NewIndex(thresholds core.Thresholds) *Index {
	return &Index{
		thresholds: thresholds,
		snap:       &Snapshot{Thresholds: thresholds},
	}
}

// SetPlaces replaces the working set and recomputes the partitions.
// The input is copied; later changes by the caller are not observed.
func (i *Index) SetPlaces(places []core.Place) uint64 {
	all := make([]core.Place, 0, len(places))
	var forbidden, preferred []core.Place
	for _, p := range places {
		c := p.Clone()
		all = append(all, c)
		switch {
		case i.thresholds.IsForbidden(c.Intimacy):
			forbidden = append(forbidden, c)
		case i.thresholds.IsPreferred(c.Intimacy):
			preferred = append(preferred, c)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	next := &Snapshot{
		Version:    i.snap.Version + 1,
		Thresholds: i.thresholds,
		All:        all,
		Forbidden:  forbidden,
		Preferred:  preferred,
	}
	i.snap = next
	return next.Version
}

// Snapshot returns the current immutable view.
func (i *Index) Snapshot() *Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.snap
}

// All returns a copy of every place.
func (i *Index) All() []core.Place {
	return clonePlaces(i.Snapshot().All)
}

// ForbiddenZones returns a copy of the places below the forbidden threshold.
func (i *Index) ForbiddenZones() []core.Place {
	return clonePlaces(i.Snapshot().Forbidden)
}

// PreferredZones returns a copy of the places above the preferred threshold.
func (i *Index) PreferredZones() []core.Place {
	return clonePlaces(i.Snapshot().Preferred)
}

// Get returns a copy of the place with the given id.
func (i *Index) Get(id string) (core.Place, bool) {
	p, ok := i.Snapshot().Get(id)
	if !ok {
		return core.Place{}, false
	}
	return p.Clone(), true
}

// Len returns the number of places in the working set.
func (i *Index) Len() int {
	return len(i.Snapshot().All)
}

// Thresholds returns the cutoffs used for classification.
func (i *Index) Thresholds() core.Thresholds {
	return i.thresholds
}

// Classify returns the zone tier of a place.
func (i *Index) Classify(p core.Place) core.Zone {
	return i.thresholds.Classify(p.Intimacy)
}

func clonePlaces(in []core.Place) []core.Place {
	out := make([]core.Place, len(in))
	for n, p := range in {
		out[n] = p.Clone()
	}
	return out
}
