package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/pkg/core"
)

// PlaceRecord is a place document as the place store clients write it.
type PlaceRecord struct {
	PlaceID         string      `json:"placeId"`
	ID              string      `json:"id"`
	RealPlaceName   string      `json:"realPlaceName"`
	Name            string      `json:"name"`
	MemoryText      string      `json:"memoryText"`
	Latitude        *float64    `json:"latitude"`
	Longitude       *float64    `json:"longitude"`
	IntimacyScore   json.Number `json:"intimacyScore"`
	EmotionKeywords []string    `json:"emotionKeywords"`
	CreatedAt       *time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time  `json:"updatedAt"`
}

// ParsePlaces parses args[0], a JSON array of place records, for :PLACES:SET:.
// Records without an ID are skipped; everything else is kept even when incomplete.
func (p *Parser) ParsePlaces(args []string) ([]core.Place, error) {
	if err := requireArgs(args, 1, ":PLACES:SET:"); err != nil {
		return nil, err
	}

	var records []PlaceRecord
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(args[0]))))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("error unmarshalling places: %w", err)
	}

	out := make([]core.Place, 0, len(records))
	for i, r := range records {
		place, err := p.recordToPlace(r, true)
		if err != nil {
			p.logger.Warn("Skipping place record", "index", i, "error", err)
			continue
		}
		out = append(out, place)
	}
	p.logger.Debug("Parsed places", "received", len(records), "kept", len(out))
	return out, nil
}

// ParsePlace parses args[0], a single place record, for :PLACE:SAVE:.
// The ID may be empty; the store assigns one.
func (p *Parser) ParsePlace(args []string) (core.Place, error) {
	if err := requireArgs(args, 1, ":PLACE:SAVE:"); err != nil {
		return core.Place{}, err
	}

	var r PlaceRecord
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(args[0]))))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return core.Place{}, fmt.Errorf("error unmarshalling place: %w", err)
	}
	return p.recordToPlace(r, false)
}

func (p *Parser) recordToPlace(r PlaceRecord, requireID bool) (core.Place, error) {
	place := core.Place{
		ID:         firstNonEmpty(r.PlaceID, r.ID),
		Name:       firstNonEmpty(r.RealPlaceName, r.Name),
		MemoryText: r.MemoryText,
	}
	if requireID && place.ID == "" {
		return core.Place{}, fmt.Errorf("place %q has no id", place.Name)
	}

	if r.IntimacyScore != "" {
		score, err := parseIntFromFloat(r.IntimacyScore.String())
		if err != nil {
			return core.Place{}, fmt.Errorf("place %q: invalid intimacy score: %w", place.Name, err)
		}
		place.Intimacy = int(score)
	}

	for _, raw := range r.EmotionKeywords {
		k, err := core.ParseEmotion(raw)
		if err != nil {
			p.logger.Debug("Dropping unknown emotion keyword", "placeId", place.ID, "keyword", raw)
			continue
		}
		place.Keywords = append(place.Keywords, k)
	}

	if r.Latitude != nil && r.Longitude != nil {
		place.Latitude, place.Longitude = *r.Latitude, *r.Longitude
		if pos, err := geo.FromLatLon(place.Latitude, place.Longitude); err == nil {
			place.Position = &pos
		} else {
			p.logger.Debug("Place has unusable coordinates", "placeId", place.ID, "error", err)
		}
	}

	if r.CreatedAt != nil {
		place.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		place.UpdatedAt = *r.UpdatedAt
	}
	return place, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
