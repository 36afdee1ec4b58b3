package audio

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/emomap/engine/pkg/core"
)

// ErrNoTrack is returned when a keyword has no track pool.
var ErrNoTrack = errors.New("no track for keyword")

// Library picks a random track for an emotion keyword.
type Library struct {
	mu    sync.Mutex
	pools map[core.Emotion]int
	rng   *rand.Rand
}

// NewLibrary creates a Library. A zero seed picks one from the clock.
func NewLibrary(pools map[core.Emotion]int, seed uint64) *Library {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	p := make(map[core.Emotion]int, len(pools))
	for k, n := range pools {
		p[k] = n
	}
	return &Library{
		pools: p,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Pick returns song/{keyword}{n}.mp3 with n drawn from 1..pool size.
func (l *Library) Pick(k core.Emotion) (string, error) {
	if k == "" {
		return "", ErrNoTrack
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.pools[k]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoTrack, k)
	}
	if n < 1 {
		n = 1
	}
	return TrackURL(k, l.rng.IntN(n)+1), nil
}

// TrackURL builds the relative url of track n for keyword k.
func TrackURL(k core.Emotion, n int) string {
	return fmt.Sprintf("song/%s%d.mp3", k, n)
}
