// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/model"
	"github.com/emomap/engine/pkg/core"
	"gorm.io/datatypes"
)

// keywordsToJSON converts keywords to datatypes.JSON for DB storage.
func keywordsToJSON(keywords []core.Emotion) datatypes.JSON {
	if len(keywords) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(keywords)
	return datatypes.JSON(data)
}

// CoreToPlace converts a core.Place to a GORM model.Place.
// A place without a position is stored at the origin with an empty Location.
func CoreToPlace(p core.Place) model.Place {
	m := model.Place{
		ID:              p.ID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Name:            p.Name,
		MemoryText:      p.MemoryText,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		IntimacyScore:   p.Intimacy,
		EmotionKeywords: keywordsToJSON(p.Keywords),
	}
	if p.Position != nil {
		m.X, m.Y, m.Z = p.Position.X, p.Position.Y, p.Position.Z
		m.Location = geo.PointFromVec(*p.Position)
	}
	return m
}

// ErrBadKeywords is returned when the keyword column is not a JSON string array.
var ErrBadKeywords = errors.New("unreadable emotion keywords")

// PlaceToCore converts a GORM model.Place to a core.Place.
// Unknown keywords are kept so Validate can report them. A corrupt keyword
// column still yields the rest of the place, together with ErrBadKeywords.
func PlaceToCore(m model.Place) (core.Place, error) {
	p := core.Place{
		ID:         m.ID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Name:       m.Name,
		MemoryText: m.MemoryText,
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		Intimacy:   m.IntimacyScore,
	}
	if pos, err := geo.Normalize(core.Vec3{X: m.X, Y: m.Y, Z: m.Z}); err == nil {
		p.Position = &pos
	}
	if len(m.EmotionKeywords) > 0 {
		var keywords []core.Emotion
		if err := json.Unmarshal(m.EmotionKeywords, &keywords); err != nil {
			return p, fmt.Errorf("place %s: %w: %v", m.ID, ErrBadKeywords, err)
		}
		p.Keywords = keywords
	}
	return p, nil
}
