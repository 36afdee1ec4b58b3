package audio

import (
	"fmt"
	"testing"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryPick_StaysInPool(t *testing.T) {
	lib := NewLibrary(config.DefaultPools(), 42)

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		url, err := lib.Pick(core.EmotionImpulse)
		require.NoError(t, err)
		seen[url] = true
	}
	assert.Len(t, seen, 5)
	for n := 1; n <= 5; n++ {
		assert.True(t, seen[fmt.Sprintf("song/impulse%d.mp3", n)])
	}
}

func TestLibraryPick_Deterministic(t *testing.T) {
	a := NewLibrary(config.DefaultPools(), 7)
	b := NewLibrary(config.DefaultPools(), 7)
	for i := 0; i < 20; i++ {
		ua, _ := a.Pick(core.EmotionCalm)
		ub, _ := b.Pick(core.EmotionCalm)
		assert.Equal(t, ua, ub)
	}
}

func TestLibraryPick_Unknown(t *testing.T) {
	lib := NewLibrary(map[core.Emotion]int{core.EmotionCalm: 0}, 1)

	url, err := lib.Pick(core.EmotionCalm)
	require.NoError(t, err)
	assert.Equal(t, "song/calm1.mp3", url)

	_, err = lib.Pick(core.EmotionTension)
	assert.ErrorIs(t, err, ErrNoTrack)
	_, err = lib.Pick("")
	assert.ErrorIs(t, err, ErrNoTrack)
}

func TestTrackURL(t *testing.T) {
	assert.Equal(t, "song/emptiness3.mp3", TrackURL(core.EmotionEmptiness, 3))
}
