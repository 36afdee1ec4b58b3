// internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/pkg/core"
	"github.com/google/uuid"
)

// ErrPlaceNotFound is returned when a place ID is not in the store.
var ErrPlaceNotFound = errors.New("place not found")

// Backend is the interface all place stores must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Place CRUD
	ListPlaces() ([]core.Place, error)
	GetPlace(id string) (core.Place, error)
	SavePlace(p *core.Place) error // assigns ID and timestamps to the passed pointer
	DeletePlace(id string) error
}

// EmotionQuerier is an optional interface for backends that can filter by keyword natively.
type EmotionQuerier interface {
	PlacesByEmotion(e core.Emotion) ([]core.Place, error)
}

// PlacesByEmotion uses the backend's native query when it has one.
func PlacesByEmotion(b Backend, e core.Emotion) ([]core.Place, error) {
	if q, ok := b.(EmotionQuerier); ok {
		return q.PlacesByEmotion(e)
	}
	all, err := b.ListPlaces()
	if err != nil {
		return nil, err
	}
	return FilterByEmotion(all, e), nil
}

// FilterByEmotion returns the places carrying keyword e, in input order.
func FilterByEmotion(places []core.Place, e core.Emotion) []core.Place {
	var out []core.Place
	for _, p := range places {
		for _, k := range p.Keywords {
			if k == e {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Prepare validates p and fills the fields a store owns: ID, timestamps and Position.
func Prepare(p *core.Place, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	pos, err := geo.FromLatLon(p.Latitude, p.Longitude)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidPlace, err)
	}
	p.Position = &pos

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return nil
}

// SortByCreated orders places oldest first, ID breaking ties.
func SortByCreated(places []core.Place) {
	sort.SliceStable(places, func(i, j int) bool {
		if !places[i].CreatedAt.Equal(places[j].CreatedAt) {
			return places[i].CreatedAt.Before(places[j].CreatedAt)
		}
		return places[i].ID < places[j].ID
	})
}
