package geo

import (
	"errors"
	"math"

	"github.com/emomap/engine/pkg/core"
)

// SlerpEpsilon is the angle under which Slerp returns its first argument.
const SlerpEpsilon = 0.001

// ErrZeroVector is returned when a vector cannot be normalized.
var ErrZeroVector = errors.New("zero-length vector")

// Dot returns the dot product of u and v.
func Dot(u, v core.Vec3) float64 {
	return u.X*v.X + u.Y*v.Y + u.Z*v.Z
}

// Norm returns the euclidean length of v.
func Norm(v core.Vec3) float64 {
	return math.Sqrt(Dot(v, v))
}

// Normalize scales v to unit length.
// Every unit vector produced in this module goes through here.
func Normalize(v core.Vec3) (core.Vec3, error) {
	n := Norm(v)
	if n < 1e-12 || math.IsNaN(n) || math.IsInf(n, 0) {
		return core.Vec3{}, ErrZeroVector
	}
	return core.Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}, nil
}

// IsUnit reports whether v has length 1 within tol.
func IsUnit(v core.Vec3, tol float64) bool {
	return math.Abs(Norm(v)-1) <= tol
}

// AngleBetween returns the angle in radians between two unit vectors, in [0, pi].
// It equals acos(clamp(u.v, -1, 1)) but stays exact for identical and near-identical inputs.
func AngleBetween(u, v core.Vec3) float64 {
	return math.Atan2(Norm(Cross(u, v)), Dot(u, v))
}

// Cross returns the cross product u x v.
func Cross(u, v core.Vec3) core.Vec3 {
	return core.Vec3{
		X: u.Y*v.Z - u.Z*v.Y,
		Y: u.Z*v.X - u.X*v.Z,
		Z: u.X*v.Y - u.Y*v.X,
	}
}

// Slerp interpolates along the great circle from u to v.
// For nearly identical inputs u is returned unchanged.
func Slerp(u, v core.Vec3, t float64) core.Vec3 {
	omega := AngleBetween(u, v)
	if omega < SlerpEpsilon {
		return u
	}

	sinOmega := math.Sin(omega)
	if sinOmega < 1e-9 {
		// antipodal: any great circle works, pick one through an orthogonal axis
		mid, err := Normalize(orthogonal(u))
		if err != nil {
			return u
		}
		if t <= 0.5 {
			return Slerp(u, mid, t*2)
		}
		return Slerp(mid, v, (t-0.5)*2)
	}

	a := math.Sin((1-t)*omega) / sinOmega
	b := math.Sin(t*omega) / sinOmega
	out, err := Normalize(core.Vec3{
		X: a*u.X + b*v.X,
		Y: a*u.Y + b*v.Y,
		Z: a*u.Z + b*v.Z,
	})
	if err != nil {
		return u
	}
	return out
}

// Midpoint returns the great-circle midpoint of u and v.
func Midpoint(u, v core.Vec3) core.Vec3 {
	return Slerp(u, v, 0.5)
}

// Smoothstep is the cubic Hermite falloff between edge0 and edge1.
// edge0 may be greater than edge1 for a decreasing curve.
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Degrees converts an angle in degrees to radians.
func Degrees(deg float64) float64 {
	return deg * math.Pi / 180
}

func orthogonal(v core.Vec3) core.Vec3 {
	// cross with the axis least aligned with v
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return core.Vec3{X: 0, Y: -v.Z, Z: v.Y}
	case ay <= az:
		return core.Vec3{X: v.Z, Y: 0, Z: -v.X}
	default:
		return core.Vec3{X: -v.Y, Y: v.X, Z: 0}
	}
}
