package physics

import (
	"math"
	"slices"
)

// Polygon is a convex polygon given by its vertices in winding order.
type Polygon struct {
	Points []Vec2 `json:"points" yaml:"points"`
}

func (p Polygon) Kind() ShapeKind  { return KindPolygon }
func (p Polygon) Vertices() []Vec2 { return p.Points }
func (Polygon) sealed()            {}

func (p Polygon) Bounds() AABB {
	lo := MinV(p.Points...)
	return AABB{Pos: lo, Size: MaxV(p.Points...).Sub(lo)}
}

func (p Polygon) Translate(d Vec2) Shape {
	out := make([]Vec2, len(p.Points))
	for i, v := range p.Points {
		out[i] = v.Add(d)
	}
	return Polygon{Points: out}
}

// Center returns the area centroid, or the vertex mean for degenerate
// (zero-area) outlines such as beam segments.
func (p Polygon) Center() Vec2 {
	var area float64
	var c Vec2
	n := len(p.Points)
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		cross := a.X*b.Y - b.X*a.Y
		area += cross
		c = c.Add(a.Add(b).Scale(cross))
	}
	if math.Abs(area) < Epsilon {
		var sum Vec2
		for _, v := range p.Points {
			sum = sum.Add(v)
		}
		return sum.Div(float64(n))
	}
	return c.Div(3 * area)
}

// Segment builds a thin quadrilateral around the segment from a to b, the
// shape used for beams.
func Segment(a, b Vec2, width float64) Polygon {
	d := b.Sub(a)
	if d.IsZero() {
		return Polygon{Points: BoxAround(a, V(width, width)).Vertices()}
	}
	off := d.Normal().Unit().Scale(width / 2)
	return Polygon{Points: []Vec2{a.Add(off), b.Add(off), b.Sub(off), a.Sub(off)}}
}

// SeparatingAxes collects the unit edge normals of all given outlines. An
// axis and its negation are the same axis, so normals are sign-normalised,
// sorted and deduplicated. Zero-length edges are skipped.
func SeparatingAxes(outlines ...[]Vec2) []Vec2 {
	var axes []Vec2
	for _, vs := range outlines {
		n := len(vs)
		for i := 0; i < n; i++ {
			e := vs[(i+1)%n].Sub(vs[i])
			if e.IsZero() {
				continue
			}
			axis := e.Normal().Unit()
			if axis.X < 0 || (axis.X == 0 && axis.Y < 0) {
				axis = axis.Scale(-1)
			}
			axes = append(axes, axis)
		}
	}
	slices.SortFunc(axes, func(a, b Vec2) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return slices.CompactFunc(axes, func(a, b Vec2) bool { return a.Eq(b, Epsilon) })
}

// OverlapSAT is the static separating-axis test for convex outlines.
func OverlapSAT(a, b []Vec2) bool {
	for _, axis := range SeparatingAxes(a, b) {
		if !Project(a, axis).Overlaps(Project(b, axis)) {
			return false
		}
	}
	return true
}

// SweepSAT is the continuous separating-axis test. For every axis the
// window of time during which the projections overlap is intersected into
// a running window; once it is empty the outlines can never meet. The
// start of the final window is the first contact time.
func SweepSAT(a []Vec2, va Vec2, b []Vec2, vb Vec2, horizon float64) float64 {
	window := Interval{Lo: 0, Hi: math.Inf(1)}
	for _, axis := range SeparatingAxes(a, b) {
		w := ContactWindow(Project(a, axis), va.Dot(axis), Project(b, axis), vb.Dot(axis))
		window = window.Intersect(w)
		if window.Empty() {
			return Never
		}
	}
	if window.Lo >= horizon {
		return Never
	}
	return window.Lo
}
