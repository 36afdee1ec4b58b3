package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

// ErrSpeakerNotReady is reported when a track is played before Init.
var ErrSpeakerNotReady = errors.New("speaker not initialized")

// SpeakerPlayer plays mp3 tracks from a directory through the system speaker.
// Loading happens off the caller's goroutine; load failures arrive as OnError.
type SpeakerPlayer struct {
	root       string
	sampleRate beep.SampleRate
	logger     *slog.Logger

	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSpeakerPlayer creates a player reading tracks below root.
func NewSpeakerPlayer(root string, sampleRate int, logger *slog.Logger) *SpeakerPlayer {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeakerPlayer{
		root:       root,
		sampleRate: beep.SampleRate(sampleRate),
		logger:     logger,
		mixer:      &beep.Mixer{},
	}
}

// Init opens the audio device.
func (p *SpeakerPlayer) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Millisecond*100))
	if err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}

	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Close silences everything still in the mixer.
func (p *SpeakerPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	p.initialized = false
}

// Play implements Player.
func (p *SpeakerPlayer) Play(url string, volume float64, ev TrackEvents) (Track, error) {
	p.mu.Lock()
	ready := p.initialized
	p.mu.Unlock()
	if !ready {
		return nil, ErrSpeakerNotReady
	}

	t := &speakerTrack{
		volume: &effects.Volume{Base: 2},
		events: ev,
	}
	setVolume(t.volume, volume)

	go p.load(t, filepath.Join(p.root, filepath.FromSlash(url)))
	return t, nil
}

func (p *SpeakerPlayer) load(t *speakerTrack, path string) {
	source, err := openTrack(path)
	if err != nil {
		t.fail(err)
		return
	}

	format := source.format
	var s beep.Streamer = source.stream
	if format.SampleRate != p.sampleRate {
		s = beep.Resample(4, format.SampleRate, p.sampleRate, s)
	}

	speaker.Lock()
	defer speaker.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		source.stream.Close()
		return
	}
	t.source = source.stream
	t.volume.Streamer = s
	t.ctrl = &beep.Ctrl{Streamer: beep.Seq(t.volume, beep.Callback(t.ended))}
	p.mixer.Add(t.ctrl)
}

type decodedTrack struct {
	stream beep.StreamSeekCloser
	format beep.Format
}

func openTrack(path string) (decodedTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return decodedTrack{}, fmt.Errorf("opening track: %w", err)
	}
	stream, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return decodedTrack{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return decodedTrack{stream: stream, format: format}, nil
}

type speakerTrack struct {
	mu     sync.Mutex
	ctrl   *beep.Ctrl
	volume *effects.Volume
	source beep.StreamSeekCloser
	events TrackEvents
	done   bool
}

// Pause detaches the track from the mixer. The mixer drops it on its next pass.
func (t *speakerTrack) Pause() {
	speaker.Lock()
	t.mu.Lock()
	if t.ctrl != nil {
		t.ctrl.Streamer = nil
	}
	source := t.source
	wasDone := t.done
	t.done = true
	t.mu.Unlock()
	speaker.Unlock()

	if source != nil && !wasDone {
		source.Close()
	}
}

func (t *speakerTrack) SetVolume(v float64) {
	speaker.Lock()
	defer speaker.Unlock()
	setVolume(t.volume, v)
}

// ended runs on the speaker goroutine with the speaker lock held.
func (t *speakerTrack) ended() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	source := t.source
	t.mu.Unlock()

	streamErr := source.Err()
	go func() {
		source.Close()
		if streamErr != nil {
			if t.events.OnError != nil {
				t.events.OnError(streamErr)
			}
			return
		}
		if t.events.OnEnded != nil {
			t.events.OnEnded()
		}
	}()
}

func (t *speakerTrack) fail(err error) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.mu.Unlock()

	if t.events.OnError != nil {
		t.events.OnError(err)
	}
}

// setVolume maps a linear 0..1 gain onto beep's base-2 volume.
func setVolume(v *effects.Volume, gain float64) {
	if gain <= 0 {
		v.Volume = 0
		v.Silent = true
		return
	}
	if gain > 1 {
		gain = 1
	}
	v.Volume = math.Log2(gain)
	v.Silent = false
}
