// Package space provides 3-D vector algebra and the Octree spatial index
// used by the mesh converter and field store to answer nearest- and
// within-radius point queries.
package space

import (
	"math"

	"pixelmc/common"
)

// Add returns p + q.
func Add(p, q common.Point3D) common.Point3D {
	return common.Point3D{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p - q.
func Sub(p, q common.Point3D) common.Point3D {
	return common.Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Scale returns p scaled by s.
func Scale(p common.Point3D, s float64) common.Point3D {
	return common.Point3D{X: p.X * common.Coordinate(s), Y: p.Y * common.Coordinate(s), Z: p.Z * common.Coordinate(s)}
}

// Dot returns the scalar (dot) product of p and q.
func Dot(p, q common.Point3D) float64 {
	return float64(p.X*q.X + p.Y*q.Y + p.Z*q.Z)
}

// Cross returns the vector (cross) product of p and q.
func Cross(p, q common.Point3D) common.Point3D {
	return common.Point3D{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Norm returns the Euclidean length of p.
func Norm(p common.Point3D) float64 {
	return math.Sqrt(Dot(p, p))
}

// EuclideanDistance returns the distance between p1 and p2.
func EuclideanDistance(p1, p2 common.Point3D) float64 {
	return Norm(Sub(p1, p2))
}

// IsWithinRadius reports whether pTest lies within radius of center.
// A negative radius never contains any point.
func IsWithinRadius(center, pTest common.Point3D, radius float64) bool {
	if radius < 0 {
		return false
	}
	return EuclideanDistance(center, pTest) <= radius
}

// ClampToBox clamps p to lie within the axis-aligned box [min, max],
// returning the clamped point and whether clamping changed it.
func ClampToBox(p, min, max common.Point3D) (clamped common.Point3D, wasClamped bool) {
	clamp := func(v, lo, hi common.Coordinate) (common.Coordinate, bool) {
		if v < lo {
			return lo, true
		}
		if v > hi {
			return hi, true
		}
		return v, false
	}
	var cx, cy, cz bool
	clamped.X, cx = clamp(p.X, min.X, max.X)
	clamped.Y, cy = clamp(p.Y, min.Y, max.Y)
	clamped.Z, cz = clamp(p.Z, min.Z, max.Z)
	return clamped, cx || cy || cz
}
