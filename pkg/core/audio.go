// pkg/core/audio.go
package core

import "fmt"

// ZoneState is the audio controller's current mode.
type ZoneState int

const (
	StateIdle ZoneState = iota
	StateSilent
	StatePlacePlayback
	StateNeutralPlayback
)

func (s ZoneState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSilent:
		return "silent"
	case StatePlacePlayback:
		return "place"
	case StateNeutralPlayback:
		return "neutral"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ZoneState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ZoneState) UnmarshalText(b []byte) error {
	for _, st := range []ZoneState{StateIdle, StateSilent, StatePlacePlayback, StateNeutralPlayback} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown zone state %q", b)
}

// NeutralPlaceID is the active place id used while no place is close enough.
const NeutralPlaceID = "neutral_emptiness"

// AudioZoneState is a snapshot of the audio controller.
// ActivePlaceID is empty when nothing drives playback.
type AudioZoneState struct {
	State         ZoneState `json:"state"`
	ActivePlaceID string    `json:"activePlaceId,omitempty"`
	Queue         []Emotion `json:"activeKeywordQueue"`
	QueuePosition int       `json:"queuePosition"`
	CurrentVolume float64   `json:"currentVolume"`
	MasterVolume  float64   `json:"masterVolume"`
	TrackURL      string    `json:"trackUrl,omitempty"`
	Playing       bool      `json:"playing"`
}

// EffectiveVolume is the clamped product of current and master volume.
func (s AudioZoneState) EffectiveVolume() float64 {
	return clamp01(s.CurrentVolume) * clamp01(s.MasterVolume)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
