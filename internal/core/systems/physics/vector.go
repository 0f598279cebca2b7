package physics

import (
	"fmt"
	"math"
)

// Epsilon is the absolute tolerance used for interval emptiness and
// post-solve overlap verification.
const Epsilon = 1e-6

// Vec2 is an immutable 2D vector. Screen coordinates are assumed: x grows
// to the right, y grows downwards.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Div(s float64) Vec2   { return Vec2{v.X / s, v.Y / s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) LenSq() float64       { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float64         { return math.Sqrt(v.LenSq()) }
func (v Vec2) IsZero() bool         { return v.X == 0 && v.Y == 0 }
func (v Vec2) IsNaN() bool          { return math.IsNaN(v.X) || math.IsNaN(v.Y) }

// Eq compares component-wise within eps.
func (v Vec2) Eq(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Normal returns v rotated by +90 degrees: (-y, x).
func (v Vec2) Normal() Vec2 { return Vec2{-v.Y, v.X} }

// Unit returns v scaled to length one. The zero vector yields NaN
// components; callers must not pass it.
func (v Vec2) Unit() Vec2 { return v.Div(v.Len()) }

// Rotate rotates v counter-clockwise by rad radians.
func (v Vec2) Rotate(rad float64) Vec2 {
	sin, cos := math.Sincos(rad)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// Less orders vectors lexicographically by x then y.
func (v Vec2) Less(o Vec2) bool {
	if v.X == o.X {
		return v.Y < o.Y
	}
	return v.X < o.X
}

// Proj projects v onto b. b must be non-zero.
func (v Vec2) Proj(b Vec2) Vec2 { return b.Scale(v.Dot(b) / b.LenSq()) }

// Perp returns the component of v perpendicular to b.
func (v Vec2) Perp(b Vec2) Vec2 { return v.Sub(v.Proj(b)) }

func (v Vec2) String() string { return fmt.Sprintf("<%g,%g>", v.X, v.Y) }

// MinV returns the component-wise minimum of vs. An empty set yields +Inf.
func MinV(vs ...Vec2) Vec2 {
	out := Vec2{math.Inf(1), math.Inf(1)}
	for _, v := range vs {
		out.X = math.Min(out.X, v.X)
		out.Y = math.Min(out.Y, v.Y)
	}
	return out
}

// MaxV returns the component-wise maximum of vs. An empty set yields -Inf.
func MaxV(vs ...Vec2) Vec2 {
	out := Vec2{math.Inf(-1), math.Inf(-1)}
	for _, v := range vs {
		out.X = math.Max(out.X, v.X)
		out.Y = math.Max(out.Y, v.Y)
	}
	return out
}

// InRect reports whether p lies inside the rectangle spanned by corners a
// and b (in any order), edges included.
func InRect(p, a, b Vec2) bool {
	lo, hi := MinV(a, b), MaxV(a, b)
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Vec2) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }
