// pkg/core/place.go
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPlace is returned by Place.Validate.
var ErrInvalidPlace = errors.New("invalid place")

// Vec3 is a direction on the unit sphere.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Emotion is one of the fixed emotion keywords a place can carry.
type Emotion string

const (
	EmotionCalm      Emotion = "calm"
	EmotionAffection Emotion = "affection"
	EmotionAnxiety   Emotion = "anxiety"
	EmotionAvoidance Emotion = "avoidance"
	EmotionEmptiness Emotion = "emptiness"
	EmotionImpulse   Emotion = "impulse"
	EmotionTension   Emotion = "tension"
)

// Emotions lists the keyword set in canonical order.
var Emotions = []Emotion{
	EmotionCalm,
	EmotionAffection,
	EmotionAnxiety,
	EmotionAvoidance,
	EmotionEmptiness,
	EmotionImpulse,
	EmotionTension,
}

// MaxKeywords is the most keywords a place may carry.
const MaxKeywords = 3

// Valid reports whether e is part of the fixed keyword set.
func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEmotion normalizes s and checks it against the keyword set.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: unknown emotion keyword %q", ErrInvalidPlace, s)
	}
	return e, nil
}

// Place is a user-created emotional landmark.
// Position is nil when the place has no resolvable location.
type Place struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MemoryText string    `json:"memoryText,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Position   *Vec3     `json:"position,omitempty"`
	Intimacy   int       `json:"intimacyScore"`
	Keywords   []Emotion `json:"emotionKeywords"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a copy of p that shares no slices or pointers with it.
func (p Place) Clone() Place {
	c := p
	if p.Position != nil {
		pos := *p.Position
		c.Position = &pos
	}
	c.Keywords = append([]Emotion(nil), p.Keywords...)
	return c
}

// Validate checks the user-editable fields of a place.
func (p *Place) Validate() error {
	var problems []string

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		problems = append(problems, "latitude must be within [-90, 90]")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		problems = append(problems, "longitude must be within [-180, 180]")
	}
	if p.Intimacy < 0 || p.Intimacy > 100 {
		problems = append(problems, "intimacy score must be within [0, 100]")
	}
	switch {
	case len(p.Keywords) == 0:
		problems = append(problems, "at least one emotion keyword is required")
	case len(p.Keywords) > MaxKeywords:
		problems = append(problems, fmt.Sprintf("at most %d emotion keywords are allowed", MaxKeywords))
	}
	for _, k := range p.Keywords {
		if !k.Valid() {
			problems = append(problems, fmt.Sprintf("unknown emotion keyword %q", k))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPlace, strings.Join(problems, "; "))
	}
	return nil
}

// Zone is the comfort tier a place falls into.
type Zone int

const (
	ZoneForbidden Zone = iota
	ZoneUncomfortable
	ZoneNeutral
	ZoneComfortable
	ZoneWelcoming
)

func (z Zone) String() string {
	switch z {
	case ZoneForbidden:
		return "forbidden"
	case ZoneUncomfortable:
		return "uncomfortable"
	case ZoneNeutral:
		return "neutral"
	case ZoneComfortable:
		return "comfortable"
	case ZoneWelcoming:
		return "welcoming"
	default:
		return "unknown"
	}
}

// Thresholds are the intimacy cutoffs used to classify places.
type Thresholds struct {
	Forbidden     int `json:"forbidden" mapstructure:"forbidden"`         // score < Forbidden blocks
	Uncomfortable int `json:"uncomfortable" mapstructure:"uncomfortable"` // score <= Uncomfortable
	Comfortable   int `json:"comfortable" mapstructure:"comfortable"`     // score > Comfortable
	Preferred     int `json:"preferred" mapstructure:"preferred"`         // score > Preferred attracts waypoints
}

// DefaultThresholds returns the stock cutoffs (6 / 30 / 50 / 70).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Forbidden:     6,
		Uncomfortable: 30,
		Comfortable:   50,
		Preferred:     70,
	}
}

// IsForbidden reports whether a score is inside a mute zone.
func (t Thresholds) IsForbidden(score int) bool {
	return score < t.Forbidden
}

// IsPreferred reports whether a score attracts route waypoints.
func (t Thresholds) IsPreferred(score int) bool {
	return score > t.Preferred
}

// Classify maps a score to its zone tier.
func (t Thresholds) Classify(score int) Zone {
	switch {
	case score < t.Forbidden:
		return ZoneForbidden
	case score <= t.Uncomfortable:
		return ZoneUncomfortable
	case score <= t.Comfortable:
		return ZoneNeutral
	case score <= t.Preferred:
		return ZoneComfortable
	default:
		return ZoneWelcoming
	}
}
