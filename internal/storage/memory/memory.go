// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/pkg/core"
)

// Backend keeps places in memory and persists them to a JSON file
type Backend struct {
	cfg    config.MemoryConfig
	places map[string]core.Place
	dirty  bool
	now    func() time.Time

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		places: make(map[string]core.Place),
		now:    time.Now,
	}
}

// Init loads the persisted place file if there is one.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	loaded, err := b.load()
	if err != nil {
		return err
	}
	for _, p := range loaded {
		b.places[p.ID] = p
	}
	return nil
}

// Close flushes pending changes to disk.
func (b *Backend) Close() error {
	return b.Flush()
}

// Flush writes the place set to disk when it changed since the last write.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty || b.cfg.Path == "" {
		return nil
	}
	if err := b.persist(); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// ListPlaces returns every place, oldest first.
func (b *Backend) ListPlaces() ([]core.Place, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.sortedLocked(), nil
}

// GetPlace returns one place by ID.
func (b *Backend) GetPlace(id string) (core.Place, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.places[id]
	if !ok {
		return core.Place{}, storage.ErrPlaceNotFound
	}
	return p.Clone(), nil
}

// SavePlace creates or replaces a place.
func (b *Backend) SavePlace(p *core.Place) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.places[p.ID]; ok && p.ID != "" && p.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}
	if err := storage.Prepare(p, b.now()); err != nil {
		return err
	}
	b.places[p.ID] = p.Clone()
	b.dirty = true
	return nil
}

// DeletePlace removes a place.
func (b *Backend) DeletePlace(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.places[id]; !ok {
		return storage.ErrPlaceNotFound
	}
	delete(b.places, id)
	b.dirty = true
	return nil
}

// PlacesByEmotion returns the places tagged with keyword e, oldest first.
func (b *Backend) PlacesByEmotion(e core.Emotion) ([]core.Place, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return storage.FilterByEmotion(b.sortedLocked(), e), nil
}

func (b *Backend) sortedLocked() []core.Place {
	out := make([]core.Place, 0, len(b.places))
	for _, p := range b.places {
		out = append(out, p.Clone())
	}
	storage.SortByCreated(out)
	return out
}
