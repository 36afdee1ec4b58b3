package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/emomap/engine/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Places and routes are exported as EPSG:3857, the same projection the renderer and the
// database use. Core geometry never leaves the unit sphere; projection only happens at the edges.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// maxMercatorLatitude is where web mercator stops being finite.
const maxMercatorLatitude = 85.05112878

// FromLatLon returns the unit direction for a latitude/longitude pair in degrees.
// Z points to the north pole, X to (0, 0).
func FromLatLon(lat, lon float64) (core.Vec3, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	phi := Degrees(lat)
	lambda := Degrees(lon)
	return Normalize(core.Vec3{
		X: math.Cos(phi) * math.Cos(lambda),
		Y: math.Cos(phi) * math.Sin(lambda),
		Z: math.Sin(phi),
	})
}

// ToLatLon inverts FromLatLon.
func ToLatLon(v core.Vec3) (lat, lon float64) {
	lat = math.Asin(Clamp(v.Z, -1, 1)) * 180 / math.Pi
	lon = math.Atan2(v.Y, v.X) * 180 / math.Pi
	return lat, lon
}

// ParsePosition parses "lat,lon" (degrees) or "x,y,z" (any non-zero direction).
func ParsePosition(coords string) (core.Vec3, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, ErrInvalidCoordinates
		}
		vals[i] = f
	}
	if len(vals) == 2 {
		return FromLatLon(vals[0], vals[1])
	}
	v, err := Normalize(core.Vec3{X: vals[0], Y: vals[1], Z: vals[2]})
	if err != nil {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	return v, nil
}

// Coords3857From4326 projects a longitude and latitude to web mercator
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	x, y float64,
) {
	latitude = Clamp(latitude, -maxMercatorLatitude, maxMercatorLatitude)
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	return x, y
}

// PointFromVec projects a unit direction to a 3857 point.
func PointFromVec(v core.Vec3) geom.Point {
	lat, lon := ToLatLon(v)
	x, y := Coords3857From4326(lon, lat)
	return geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
}
