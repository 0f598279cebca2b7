package physics

import "math"

// CircleSegments is the vertex count of the polygon that stands in for a
// circle in separating-axis tests against non-circles.
const CircleSegments = 16

// Circle is a disc with center C and radius R.
type Circle struct {
	C Vec2    `json:"c" yaml:"c"`
	R float64 `json:"r" yaml:"r"`
}

func (c Circle) Kind() ShapeKind        { return KindCircle }
func (c Circle) Center() Vec2           { return c.C }
func (c Circle) Bounds() AABB           { return BoxAround(c.C, V(2*c.R, 2*c.R)) }
func (c Circle) Translate(d Vec2) Shape { return Circle{C: c.C.Add(d), R: c.R} }
func (Circle) sealed()                  {}

// Vertices returns a regular polygon circumscribing the circle, so the
// approximation never under-reports contact.
func (c Circle) Vertices() []Vec2 {
	vr := c.R / math.Cos(math.Pi/CircleSegments)
	out := make([]Vec2, CircleSegments)
	step := 2 * math.Pi / CircleSegments
	for i := range out {
		out[i] = c.C.Add(V(vr, 0).Rotate(float64(i) * step))
	}
	return out
}

// Overlaps reports whether the discs touch or intersect.
func (c Circle) Overlaps(o Circle) bool {
	r := c.R + o.R
	return o.C.Sub(c.C).LenSq() <= r*r
}

// OverlapsBox reports whether the disc touches or intersects b.
func (c Circle) OverlapsBox(b AABB) bool {
	lo, hi := b.Min(), b.Max()
	closest := V(math.Max(lo.X, math.Min(c.C.X, hi.X)), math.Max(lo.Y, math.Min(c.C.Y, hi.Y)))
	return closest.Sub(c.C).LenSq() <= c.R*c.R
}

// ClosestPoint returns the point on the circle nearest to o. o must differ
// from the center.
func (c Circle) ClosestPoint(o Vec2) Vec2 {
	return c.C.Add(o.Sub(c.C).Unit().Scale(c.R))
}

// SolveQuadratic returns the real roots of a*x^2 + b*x + c = 0 in ascending
// order and how many there are. A degenerate a == 0 falls back to the
// linear solution.
func SolveQuadratic(a, b, c float64) (roots [2]float64, n int) {
	if a == 0 {
		if b == 0 {
			return roots, 0
		}
		roots[0] = -c / b
		return roots, 1
	}
	d := b*b - 4*a*c
	switch {
	case d < 0:
		return roots, 0
	case d == 0:
		roots[0] = -b / (2 * a)
		return roots, 1
	}
	rtd := math.Sqrt(d)
	x1, x2 := (-b-rtd)/(2*a), (-b+rtd)/(2*a)
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	roots[0], roots[1] = x1, x2
	return roots, 2
}

// SweepCircles returns the earliest t >= 0 at which circle a moving at va
// touches circle b moving at vb, 0 if they already overlap, or Never.
// It solves |dp + dv*t|^2 = (ra+rb)^2 for t.
func SweepCircles(a Circle, va Vec2, b Circle, vb Vec2, horizon float64) float64 {
	if a.Overlaps(b) {
		return 0
	}
	dp := b.C.Sub(a.C)
	dv := vb.Sub(va)
	r := a.R + b.R
	roots, n := SolveQuadratic(dv.LenSq(), 2*dp.Dot(dv), dp.LenSq()-r*r)
	best := Never
	for i := 0; i < n; i++ {
		if roots[i] >= 0 {
			best = roots[i]
			break
		}
	}
	if best >= horizon {
		return Never
	}
	return best
}
