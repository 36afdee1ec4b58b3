package audio

// TrackEvents are the completion callbacks of one track.
// Exactly one of them fires at most once.
type TrackEvents struct {
	OnEnded func()
	OnError func(error)
}

// Track is a handle to one playing track.
type Track interface {
	// Pause stops the track immediately. No event fires afterwards.
	Pause()
	SetVolume(v float64)
}

// Player is the playback capability the controller drives.
// Implementations must deliver TrackEvents asynchronously, never from inside Play.
type Player interface {
	Play(url string, volume float64, ev TrackEvents) (Track, error)
}

// NopPlayer accepts every track and never finishes any of them.
type NopPlayer struct{}

// Play implements Player.
func (NopPlayer) Play(string, float64, TrackEvents) (Track, error) {
	return nopTrack{}, nil
}

type nopTrack struct{}

func (nopTrack) Pause()            {}
func (nopTrack) SetVolume(float64) {}
