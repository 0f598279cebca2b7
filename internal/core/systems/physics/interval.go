package physics

import "math"

// Interval is a closed range [Lo, Hi] on the real line. It is used both for
// scalar projections onto an axis and for windows of time.
type Interval struct {
	Lo, Hi float64
}

// Always is the unbounded interval; it places no constraint when intersected.
var Always = Interval{Lo: math.Inf(-1), Hi: math.Inf(1)}

// Overlaps reports whether the closed intervals share at least one point.
func (i Interval) Overlaps(o Interval) bool {
	return i.Lo <= o.Hi && o.Lo <= i.Hi
}

// Empty reports whether the interval is degenerate, i.e. shorter than
// Epsilon. Zero-length contact windows count as empty.
func (i Interval) Empty() bool {
	return i.Hi-i.Lo < Epsilon
}

// Intersect returns the common part of i and o, or the empty interval.
func (i Interval) Intersect(o Interval) Interval {
	if !i.Overlaps(o) {
		return Interval{}
	}
	return Interval{Lo: math.Max(i.Lo, o.Lo), Hi: math.Min(i.Hi, o.Hi)}
}

// Project returns the extent of the vertex set along axis.
func Project(vs []Vec2, axis Vec2) Interval {
	out := Interval{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, v := range vs {
		p := v.Dot(axis)
		out.Lo = math.Min(out.Lo, p)
		out.Hi = math.Max(out.Hi, p)
	}
	return out
}

// ContactWindow returns the non-negative times during which interval a,
// moving at speed va, overlaps interval b, moving at speed vb.
//
// With no relative motion the answer is either Always (they overlap now and
// forever) or empty (they never will).
func ContactWindow(a Interval, va float64, b Interval, vb float64) Interval {
	rel := va - vb
	if rel == 0 {
		if a.Overlaps(b) {
			return Always
		}
		return Interval{}
	}
	// a.Lo + rel*t <= b.Hi and a.Hi + rel*t >= b.Lo
	lo := (b.Lo - a.Hi) / rel
	hi := (b.Hi - a.Lo) / rel
	if rel < 0 {
		lo, hi = hi, lo
	}
	return Interval{Lo: math.Max(lo, 0), Hi: math.Max(hi, 0)}
}
