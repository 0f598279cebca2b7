// Package physics is the geometry kernel: 2D vectors, static overlap tests
// and continuous-time (swept) collision solvers for boxes, circles and
// convex polygons under constant relative velocity.
//
// Times are expressed in the same unit as velocities (ticks in practice).
// A time of Never means the bodies do not meet within the horizon.
package physics

import "math"

// Never is the "no collision / no exit" sentinel. It compares larger than
// every finite time.
var Never = math.Inf(1)

// IsNever reports whether t is the Never sentinel.
func IsNever(t float64) bool { return math.IsInf(t, 1) }

// DefaultHorizon bounds every solver; later predictions are reported as Never.
const DefaultHorizon = 6000

// ShapeKind tags the closed set of shapes understood by the kernel.
type ShapeKind uint8

const (
	KindBox ShapeKind = iota
	KindCircle
	KindPolygon
)

func (k ShapeKind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Shape is implemented by AABB, Circle and Polygon only.
type Shape interface {
	Kind() ShapeKind
	// Center is the center of mass.
	Center() Vec2
	// Bounds is the tightest axis-aligned box containing the shape.
	Bounds() AABB
	// Translate returns a copy moved by d.
	Translate(d Vec2) Shape
	// Vertices returns a convex outline in winding order. Circles return a
	// circumscribed regular polygon.
	Vertices() []Vec2

	sealed()
}
