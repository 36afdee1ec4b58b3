package places

import (
	"sync"
	"testing"

	"github.com/emomap/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func place(id string, score int) core.Place {
	return core.Place{
		ID:       id,
		Name:     id,
		Intimacy: score,
		Keywords: []core.Emotion{core.EmotionCalm},
		Position: &core.Vec3{X: 1},
	}
}

func TestSetPlaces_Partitions(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	v := idx.SetPlaces([]core.Place{
		place("mute", 5),
		place("edge-forbidden", 6),
		place("neutral", 50),
		place("edge-preferred", 70),
		place("loved", 71),
	})
	assert.Equal(t, uint64(1), v)

	assert.Len(t, idx.All(), 5)

	forbidden := idx.ForbiddenZones()
	require.Len(t, forbidden, 1)
	assert.Equal(t, "mute", forbidden[0].ID)

	preferred := idx.PreferredZones()
	require.Len(t, preferred, 1)
	assert.Equal(t, "loved", preferred[0].ID)
}

func TestSetPlaces_ReplacesWholeSet(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	idx.SetPlaces([]core.Place{place("a", 5), place("b", 90)})
	idx.SetPlaces([]core.Place{place("c", 40)})

	assert.Equal(t, 1, idx.Len())
	assert.Empty(t, idx.ForbiddenZones())
	assert.Empty(t, idx.PreferredZones())
	_, ok := idx.Get("a")
	assert.False(t, ok)
	assert.Equal(t, uint64(2), idx.Snapshot().Version)
}

func TestSetPlaces_CopiesInput(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	in := []core.Place{place("a", 80)}
	idx.SetPlaces(in)

	in[0].Intimacy = 1
	in[0].Keywords[0] = core.EmotionTension
	in[0].Position.X = 0

	got, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, 80, got.Intimacy)
	assert.Equal(t, core.EmotionCalm, got.Keywords[0])
	assert.Equal(t, 1.0, got.Position.X)
}

func TestAccessorsReturnCopies(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	idx.SetPlaces([]core.Place{place("a", 80)})

	all := idx.All()
	all[0].Keywords[0] = core.EmotionTension

	got, _ := idx.Get("a")
	assert.Equal(t, core.EmotionCalm, got.Keywords[0])
}

func TestSnapshotIsStableAcrossSetPlaces(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	idx.SetPlaces([]core.Place{place("a", 80)})

	snap := idx.Snapshot()
	idx.SetPlaces(nil)

	assert.Len(t, snap.All, 1)
	assert.Equal(t, 0, idx.Len())
	p, ok := snap.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", p.ID)
}

func TestClassify(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	assert.Equal(t, core.ZoneForbidden, idx.Classify(place("x", 3)))
	assert.Equal(t, core.ZoneUncomfortable, idx.Classify(place("x", 25)))
	assert.Equal(t, core.ZoneWelcoming, idx.Classify(place("x", 95)))
}

func TestCustomThresholds(t *testing.T) {
	idx := NewIndex(core.Thresholds{Forbidden: 20, Uncomfortable: 30, Comfortable: 50, Preferred: 80})
	idx.SetPlaces([]core.Place{place("a", 10), place("b", 75), place("c", 85)})

	assert.Len(t, idx.ForbiddenZones(), 1)
	preferred := idx.PreferredZones()
	require.Len(t, preferred, 1)
	assert.Equal(t, "c", preferred[0].ID)
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	idx := NewIndex(core.DefaultThresholds())
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := idx.Snapshot()
				// partitions always belong to the same version as All
				assert.LessOrEqual(t, len(snap.Forbidden)+len(snap.Preferred), len(snap.All))
			}
		}()
	}
	for i := 0; i < 100; i++ {
		idx.SetPlaces([]core.Place{place("a", i%100), place("b", 100-i%100)})
	}
	wg.Wait()
}
