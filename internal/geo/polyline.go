package geo

import (
	"fmt"

	"github.com/emomap/engine/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathToLineString projects a route path to an EPSG:3857 line string.
func PathToLineString(path []core.Vec3) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(path))
	}

	flatCoords := make([]float64, 0, len(path)*2)
	for _, v := range path {
		lat, lon := ToLatLon(v)
		x, y := Coords3857From4326(lon, lat)
		flatCoords = append(flatCoords, x, y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// PathToWKT renders a path as WKT, or an empty string for paths too short to draw.
func PathToWKT(path []core.Vec3) string {
	ls, err := PathToLineString(path)
	if err != nil {
		return ""
	}
	return ls.AsText()
}

// PathLatLon converts a path to [lat, lon] pairs for display.
func PathLatLon(path []core.Vec3) [][2]float64 {
	out := make([][2]float64, len(path))
	for i, v := range path {
		lat, lon := ToLatLon(v)
		out[i] = [2]float64{lat, lon}
	}
	return out
}
