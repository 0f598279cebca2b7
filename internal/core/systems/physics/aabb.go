package physics

import "math"

// AABB is an axis-aligned box with top-left corner Pos and extent Size.
type AABB struct {
	Pos  Vec2 `json:"pos" yaml:"pos"`
	Size Vec2 `json:"size" yaml:"size"`
}

// Box builds an AABB from its top-left corner and dimensions.
func Box(x, y, w, h float64) AABB { return AABB{Pos: V(x, y), Size: V(w, h)} }

// BoxAround builds an AABB of the given size centered on c.
func BoxAround(c, size Vec2) AABB { return AABB{Pos: c.Sub(size.Scale(0.5)), Size: size} }

func (a AABB) Kind() ShapeKind        { return KindBox }
func (a AABB) Center() Vec2           { return a.Pos.Add(a.Size.Scale(0.5)) }
func (a AABB) Bounds() AABB           { return a }
func (a AABB) Translate(d Vec2) Shape { return a.Moved(d) }
func (a AABB) Min() Vec2              { return a.Pos }
func (a AABB) Max() Vec2              { return a.Pos.Add(a.Size) }
func (AABB) sealed()                  {}

// Moved is Translate without the interface boxing.
func (a AABB) Moved(d Vec2) AABB { return AABB{Pos: a.Pos.Add(d), Size: a.Size} }

// Vertices lists the corners clockwise in screen space.
func (a AABB) Vertices() []Vec2 {
	return []Vec2{
		a.Pos,
		V(a.Pos.X+a.Size.X, a.Pos.Y),
		a.Pos.Add(a.Size),
		V(a.Pos.X, a.Pos.Y+a.Size.Y),
	}
}

// Overlaps is the closed-interval overlap test: touching boxes overlap.
func (a AABB) Overlaps(b AABB) bool { return a.overlapsWithin(b, 0) }

func (a AABB) overlapsWithin(b AABB, eps float64) bool {
	return a.Pos.X <= b.Pos.X+b.Size.X+eps &&
		a.Pos.X+a.Size.X+eps >= b.Pos.X &&
		a.Pos.Y <= b.Pos.Y+b.Size.Y+eps &&
		a.Pos.Y+a.Size.Y+eps >= b.Pos.Y
}

// Contains reports whether inner lies entirely within a, edges included.
func (a AABB) Contains(inner AABB) bool {
	return inner.Pos.X >= a.Pos.X &&
		inner.Pos.X+inner.Size.X <= a.Pos.X+a.Size.X &&
		inner.Pos.Y >= a.Pos.Y &&
		inner.Pos.Y+inner.Size.Y <= a.Pos.Y+a.Size.Y
}

// SweepBoxes returns the earliest t >= 0 at which box a moving at va
// overlaps box b moving at vb, 0 if they already overlap, or Never.
//
// Each axis contributes two boundary-crossing candidates. Crossing one axis
// says nothing about the other, so every candidate is re-verified with a
// static overlap test at that time.
func SweepBoxes(a AABB, va Vec2, b AABB, vb Vec2, horizon float64) float64 {
	if a.Overlaps(b) {
		return 0
	}
	rv := vb.Sub(va)
	best := Never
	try := func(t float64) {
		if t < 0 || t >= best {
			return
		}
		if a.overlapsWithin(b.Moved(rv.Scale(t)), Epsilon) {
			best = t
		}
	}
	if rv.X != 0 {
		try((a.Pos.X - b.Pos.X - b.Size.X) / rv.X)
		try((a.Pos.X + a.Size.X - b.Pos.X) / rv.X)
	}
	if rv.Y != 0 {
		try((a.Pos.Y - b.Pos.Y - b.Size.Y) / rv.Y)
		try((a.Pos.Y + a.Size.Y - b.Pos.Y) / rv.Y)
	}
	if best >= horizon {
		return Never
	}
	return best
}

// ExitTime returns when box inner (moving at vi) first crosses outside box
// outer (moving at vo). It is 0 if inner is not contained now. Only walls
// that inner is moving towards are considered, so a box resting against a
// wall and moving away from it does not exit.
func ExitTime(outer AABB, vo Vec2, inner AABB, vi Vec2, horizon float64) float64 {
	if !outer.Contains(inner) {
		return 0
	}
	rv := vi.Sub(vo)
	best := Never
	switch {
	case rv.X > 0:
		best = math.Min(best, (outer.Max().X-inner.Max().X)/rv.X)
	case rv.X < 0:
		best = math.Min(best, (outer.Pos.X-inner.Pos.X)/rv.X)
	}
	switch {
	case rv.Y > 0:
		best = math.Min(best, (outer.Max().Y-inner.Max().Y)/rv.Y)
	case rv.Y < 0:
		best = math.Min(best, (outer.Pos.Y-inner.Pos.Y)/rv.Y)
	}
	if best >= horizon {
		return Never
	}
	return best
}
