// Package gormstore implements the storage.Backend interface on top of GORM.
// It serves both the SQLite and the Postgres configurations; the connection
// is owned by database.Manager.
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emomap/engine/internal/database"
	"github.com/emomap/engine/internal/model"
	"github.com/emomap/engine/internal/model/convert"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend implements storage.Backend with one row per place.
type Backend struct {
	deps Dependencies
	now  func() time.Time
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{
		deps: deps,
		now:  time.Now,
	}
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gormstore: no database connection")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.Logger.Debug("Place table ready", "dialect", b.deps.DB.Dialector.Name())
	return nil
}

// Close is a no-op; the connection belongs to the database manager.
func (b *Backend) Close() error {
	return nil
}

// ListPlaces returns every place, oldest first.
func (b *Backend) ListPlaces() ([]core.Place, error) {
	var rows []model.Place
	if err := b.deps.DB.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return b.toCore(rows), nil
}

// GetPlace returns one place by ID.
func (b *Backend) GetPlace(id string) (core.Place, error) {
	var row model.Place
	err := b.deps.DB.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Place{}, storage.ErrPlaceNotFound
	}
	if err != nil {
		return core.Place{}, fmt.Errorf("failed to get place %s: %w", id, err)
	}
	return convert.PlaceToCore(row)
}

// SavePlace creates or replaces a place.
func (b *Backend) SavePlace(p *core.Place) error {
	if p.ID != "" && p.CreatedAt.IsZero() {
		var existing model.Place
		err := b.deps.DB.Select("created_at").Where("id = ?", p.ID).Take(&existing).Error
		if err == nil {
			p.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up place %s: %w", p.ID, err)
		}
	}
	if err := storage.Prepare(p, b.now()); err != nil {
		return err
	}

	row := convert.CoreToPlace(*p)
	if err := b.deps.DB.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save place %s: %w", p.ID, err)
	}
	return nil
}

// DeletePlace removes a place.
func (b *Backend) DeletePlace(id string) error {
	res := b.deps.DB.Where("id = ?", id).Delete(&model.Place{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete place %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrPlaceNotFound
	}
	return nil
}

// PlacesByEmotion filters on the keyword JSON column in the database.
func (b *Backend) PlacesByEmotion(e core.Emotion) ([]core.Place, error) {
	var cond string
	switch b.deps.DB.Dialector.Name() {
	case "sqlite":
		cond = "EXISTS (SELECT 1 FROM json_each(places.emotion_keywords) WHERE json_each.value = ?)"
	case "postgres":
		cond = "jsonb_exists(places.emotion_keywords, ?)"
	default:
		all, err := b.ListPlaces()
		if err != nil {
			return nil, err
		}
		return storage.FilterByEmotion(all, e), nil
	}

	var rows []model.Place
	if err := b.deps.DB.Where(cond, string(e)).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query places by emotion: %w", err)
	}
	return b.toCore(rows), nil
}

// toCore keeps rows whose keyword column is unreadable so they can still be
// re-saved or deleted, and logs each of them.
func (b *Backend) toCore(rows []model.Place) []core.Place {
	out := make([]core.Place, 0, len(rows))
	for _, r := range rows {
		p, err := convert.PlaceToCore(r)
		if err != nil {
			b.deps.Logger.Warn("Place loaded without keywords", "place", r.ID, "error", err)
		}
		out = append(out, p)
	}
	return out
}
