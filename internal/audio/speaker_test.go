package audio

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeakerPlayer_PlayBeforeInit(t *testing.T) {
	p := NewSpeakerPlayer(t.TempDir(), 0, nil)
	_, err := p.Play("song/calm1.mp3", 1, TrackEvents{})
	assert.ErrorIs(t, err, ErrSpeakerNotReady)
	assert.Equal(t, 44100, int(p.sampleRate))

	// closing an unopened player is a no-op
	p.Close()
}

func TestOpenTrack_Missing(t *testing.T) {
	_, err := openTrack(filepath.Join(t.TempDir(), "nope.mp3"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenTrack_NotMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calm1.mp3")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0644))

	_, err := openTrack(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calm1.mp3")
}

func TestSetVolume(t *testing.T) {
	v := &effects.Volume{Base: 2}

	setVolume(v, 1)
	assert.Equal(t, 0.0, v.Volume)
	assert.False(t, v.Silent)

	setVolume(v, 0.5)
	assert.Equal(t, -1.0, v.Volume)

	setVolume(v, 0)
	assert.True(t, v.Silent)

	setVolume(v, 3)
	assert.Equal(t, 0.0, v.Volume)
	assert.False(t, v.Silent)

	setVolume(v, 0.25)
	assert.InDelta(t, math.Log2(0.25), v.Volume, 1e-12)
}

func TestSpeakerTrack_FailFiresOnce(t *testing.T) {
	calls := 0
	tr := &speakerTrack{
		volume: &effects.Volume{Base: 2},
		events: TrackEvents{OnError: func(error) { calls++ }},
	}
	tr.fail(fs.ErrNotExist)
	tr.fail(fs.ErrNotExist)
	assert.Equal(t, 1, calls)
}
