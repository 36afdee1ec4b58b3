package router

import (
	"math"
	"sort"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/pkg/core"
)

// samplePath interpolates through anchors with exactly steps steps,
// returning steps+1 points. Steps are shared between segments in proportion
// to their angular length, with at least one step per segment.
// Joints between segments appear once.
func samplePath(anchors []core.Vec3, steps int) []core.Vec3 {
	if len(anchors)-1 > steps {
		// not enough budget to visit every anchor
		anchors = []core.Vec3{anchors[0], anchors[len(anchors)-1]}
	}
	alloc := allocateSteps(anchors, steps)

	path := make([]core.Vec3, 0, steps+1)
	path = append(path, anchors[0])
	for seg := 0; seg < len(anchors)-1; seg++ {
		from, to := anchors[seg], anchors[seg+1]
		n := alloc[seg]
		for k := 1; k <= n; k++ {
			path = append(path, geo.Slerp(from, to, float64(k)/float64(n)))
		}
	}
	return path
}

func allocateSteps(anchors []core.Vec3, steps int) []int {
	segs := len(anchors) - 1
	alloc := make([]int, segs)
	if segs == 1 {
		alloc[0] = steps
		return alloc
	}

	angles := make([]float64, segs)
	var total float64
	for i := 0; i < segs; i++ {
		angles[i] = geo.AngleBetween(anchors[i], anchors[i+1])
		total += angles[i]
	}

	type rem struct {
		seg  int
		frac float64
	}
	rems := make([]rem, segs)
	used := 0
	for i := range alloc {
		share := float64(steps) / float64(segs)
		if total > 0 {
			share = float64(steps) * angles[i] / total
		}
		alloc[i] = int(math.Floor(share))
		rems[i] = rem{seg: i, frac: share - float64(alloc[i])}
		if alloc[i] < 1 {
			alloc[i] = 1
		}
		used += alloc[i]
	}

	// hand out the remainder by largest fractional share
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; used < steps; i = (i + 1) % segs {
		alloc[rems[i].seg]++
		used++
	}
	// minimum bumps can overshoot; take back from the largest segments
	for used > steps {
		largest := 0
		for i := range alloc {
			if alloc[i] > alloc[largest] {
				largest = i
			}
		}
		alloc[largest]--
		used--
	}
	return alloc
}
