// internal/storage/memory/memory_test.go
package memory

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend        = (*Backend)(nil)
	_ storage.EmotionQuerier = (*Backend)(nil)
)

func newPlace(name string, score int, kw ...core.Emotion) *core.Place {
	return &core.Place{
		Name:      name,
		Latitude:  37.5665,
		Longitude: 126.978,
		Intimacy:  score,
		Keywords:  kw,
	}
}

func fixedClock(b *Backend) *time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time {
		t = t.Add(time.Second)
		return t
	}
	return &t
}

func TestSavePlace_AssignsIDAndPosition(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.Init())
	fixedClock(b)

	p := newPlace("home", 80, core.EmotionCalm)
	require.NoError(t, b.SavePlace(p))

	assert.NotEmpty(t, p.ID)
	require.NotNil(t, p.Position)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	got, err := b.GetPlace(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "home", got.Name)
	assert.Equal(t, []core.Emotion{core.EmotionCalm}, got.Keywords)
}

func TestSavePlace_RejectsInvalid(t *testing.T) {
	b := New(config.MemoryConfig{})

	err := b.SavePlace(newPlace("", 50, core.EmotionCalm))
	assert.ErrorIs(t, err, core.ErrInvalidPlace)

	err = b.SavePlace(newPlace("too many", 50, core.EmotionCalm, core.EmotionAnxiety, core.EmotionImpulse, core.EmotionTension))
	assert.ErrorIs(t, err, core.ErrInvalidPlace)

	places, err := b.ListPlaces()
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSavePlace_UpdateKeepsCreatedAt(t *testing.T) {
	b := New(config.MemoryConfig{})
	fixedClock(b)

	p := newPlace("cafe", 40, core.EmotionTension)
	require.NoError(t, b.SavePlace(p))
	created := p.CreatedAt

	update := newPlace("cafe (renamed)", 45, core.EmotionTension)
	update.ID = p.ID
	require.NoError(t, b.SavePlace(update))

	got, err := b.GetPlace(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cafe (renamed)", got.Name)
	assert.Equal(t, created, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(created))
}

func TestGetPlace_ReturnsCopy(t *testing.T) {
	b := New(config.MemoryConfig{})
	p := newPlace("park", 60, core.EmotionCalm)
	require.NoError(t, b.SavePlace(p))

	got, err := b.GetPlace(p.ID)
	require.NoError(t, err)
	got.Keywords[0] = core.EmotionAnxiety
	got.Position.X = 42

	again, err := b.GetPlace(p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.EmotionCalm, again.Keywords[0])
	assert.NotEqual(t, 42.0, again.Position.X)
}

func TestDeletePlace(t *testing.T) {
	b := New(config.MemoryConfig{})
	p := newPlace("old school", 3, core.EmotionAvoidance)
	require.NoError(t, b.SavePlace(p))

	require.NoError(t, b.DeletePlace(p.ID))
	_, err := b.GetPlace(p.ID)
	assert.ErrorIs(t, err, storage.ErrPlaceNotFound)
	assert.ErrorIs(t, b.DeletePlace(p.ID), storage.ErrPlaceNotFound)
}

func TestListPlaces_OldestFirst(t *testing.T) {
	b := New(config.MemoryConfig{})
	fixedClock(b)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, b.SavePlace(newPlace(name, 50, core.EmotionCalm)))
	}

	places, err := b.ListPlaces()
	require.NoError(t, err)
	require.Len(t, places, 3)
	assert.Equal(t, "a", places[0].Name)
	assert.Equal(t, "b", places[1].Name)
	assert.Equal(t, "c", places[2].Name)
}

func TestPlacesByEmotion(t *testing.T) {
	b := New(config.MemoryConfig{})
	fixedClock(b)

	require.NoError(t, b.SavePlace(newPlace("home", 90, core.EmotionCalm, core.EmotionAffection)))
	require.NoError(t, b.SavePlace(newPlace("office", 20, core.EmotionTension)))
	require.NoError(t, b.SavePlace(newPlace("river", 75, core.EmotionCalm)))

	calm, err := storage.PlacesByEmotion(b, core.EmotionCalm)
	require.NoError(t, err)
	require.Len(t, calm, 2)
	assert.Equal(t, "home", calm[0].Name)
	assert.Equal(t, "river", calm[1].Name)

	none, err := b.PlacesByEmotion(core.EmotionImpulse)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPersistence_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		compress bool
	}{
		{"plain json", "places.json", false},
		{"compressed flag", "places.json", true},
		{"gz suffix", "places.json.gz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.MemoryConfig{
				Path:     filepath.Join(t.TempDir(), "nested", tt.file),
				Compress: tt.compress,
			}

			b := New(cfg)
			require.NoError(t, b.Init())
			p := newPlace("home", 88, core.EmotionAffection)
			require.NoError(t, b.SavePlace(p))
			require.NoError(t, b.Close())

			_, err := os.Stat(cfg.Path)
			require.NoError(t, err)
			_, err = os.Stat(cfg.Path + ".tmp")
			assert.ErrorIs(t, err, os.ErrNotExist)

			if tt.compress || filepath.Ext(tt.file) == ".gz" {
				f, err := os.Open(cfg.Path)
				require.NoError(t, err)
				_, err = gzip.NewReader(f)
				assert.NoError(t, err, "file should be gzip")
				f.Close()
			}

			reloaded := New(cfg)
			require.NoError(t, reloaded.Init())
			got, err := reloaded.GetPlace(p.ID)
			require.NoError(t, err)
			assert.Equal(t, "home", got.Name)
			assert.Equal(t, 88, got.Intimacy)
			require.NotNil(t, got.Position)
			assert.InDelta(t, p.Position.Z, got.Position.Z, 1e-12)
		})
	}
}

func TestInit_MissingFileIsEmpty(t *testing.T) {
	b := New(config.MemoryConfig{Path: filepath.Join(t.TempDir(), "absent.json")})
	require.NoError(t, b.Init())

	places, err := b.ListPlaces()
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestInit_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	b := New(config.MemoryConfig{Path: path})
	assert.Error(t, b.Init())
}

func TestFlush_SkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	b := New(config.MemoryConfig{Path: path})
	require.NoError(t, b.Init())

	require.NoError(t, b.Flush())
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteExport_LoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "places.json.gz")
	places := []core.Place{*newPlace("Harbor", 66, core.EmotionCalm)}
	places[0].ID = "harbor"

	require.NoError(t, WriteExport(path, places, time.Now()))

	b := New(config.MemoryConfig{Path: path})
	require.NoError(t, b.Init())
	got, err := b.GetPlace("harbor")
	require.NoError(t, err)
	assert.Equal(t, "Harbor", got.Name)
}
