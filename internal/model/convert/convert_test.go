package convert

import (
	"testing"
	"time"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/model"
	"github.com/emomap/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCoreToPlace(t *testing.T) {
	pos, err := geo.FromLatLon(37.5665, 126.978)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	m := CoreToPlace(core.Place{
		ID:         "p1",
		Name:       "home",
		MemoryText: "where it started",
		Latitude:   37.5665,
		Longitude:  126.978,
		Position:   &pos,
		Intimacy:   92,
		Keywords:   []core.Emotion{core.EmotionCalm, core.EmotionAffection},
		CreatedAt:  now,
		UpdatedAt:  now,
	})

	assert.Equal(t, "p1", m.ID)
	assert.Equal(t, "home", m.Name)
	assert.Equal(t, 92, m.IntimacyScore)
	assert.JSONEq(t, `["calm","affection"]`, string(m.EmotionKeywords))
	assert.Equal(t, pos.X, m.X)
	assert.Equal(t, pos.Z, m.Z)

	xy, ok := m.Location.XY()
	require.True(t, ok)
	wantX, wantY := geo.Coords3857From4326(126.978, 37.5665)
	assert.InDelta(t, wantX, xy.X, 1e-3)
	assert.InDelta(t, wantY, xy.Y, 1e-3)
}

func TestCoreToPlace_NoPosition(t *testing.T) {
	m := CoreToPlace(core.Place{ID: "p2", Name: "draft"})

	assert.Zero(t, m.X)
	assert.True(t, m.Location.IsEmpty())
	assert.Equal(t, datatypes.JSON("[]"), m.EmotionKeywords)
}

func TestPlaceToCore(t *testing.T) {
	m := model.Place{
		ID:              "p1",
		Name:            "office",
		Z:               2,
		IntimacyScore:   12,
		EmotionKeywords: datatypes.JSON(`["tension"]`),
	}

	p, err := PlaceToCore(m)
	require.NoError(t, err)
	assert.Equal(t, "office", p.Name)
	assert.Equal(t, 12, p.Intimacy)
	assert.Equal(t, []core.Emotion{core.EmotionTension}, p.Keywords)
	require.NotNil(t, p.Position)
	assert.InDelta(t, 1.0, p.Position.Z, 1e-12)
}

func TestPlaceToCore_ZeroVectorHasNoPosition(t *testing.T) {
	p, err := PlaceToCore(model.Place{ID: "p3"})
	require.NoError(t, err)
	assert.Nil(t, p.Position)
	assert.Empty(t, p.Keywords)
}

func TestPlaceToCore_CorruptKeywords(t *testing.T) {
	p, err := PlaceToCore(model.Place{
		ID:              "p4",
		Name:            "attic",
		Z:               1,
		EmotionKeywords: datatypes.JSON(`{"calm":true}`),
	})
	require.ErrorIs(t, err, ErrBadKeywords)
	assert.Contains(t, err.Error(), "p4")
	assert.Equal(t, "attic", p.Name)
	assert.NotNil(t, p.Position)
	assert.Nil(t, p.Keywords)
}

func TestRoundTrip(t *testing.T) {
	pos, err := geo.FromLatLon(-33.86, 151.21)
	require.NoError(t, err)
	in := core.Place{
		ID:        "p4",
		Name:      "harbour",
		Latitude:  -33.86,
		Longitude: 151.21,
		Position:  &pos,
		Intimacy:  55,
		Keywords:  []core.Emotion{core.EmotionEmptiness},
	}

	out, err := PlaceToCore(CoreToPlace(in))
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Keywords, out.Keywords)
	require.NotNil(t, out.Position)
	assert.InDelta(t, pos.X, out.Position.X, 1e-12)
}
