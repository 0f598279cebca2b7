package physics

// Body is a shape moving at constant velocity, the unit every continuous
// collision query operates on.
type Body struct {
	Shape    Shape
	Velocity Vec2
}

// WithVelocity returns a copy of b moving at v.
func (b Body) WithVelocity(v Vec2) Body { return Body{Shape: b.Shape, Velocity: v} }

// At returns the body extrapolated t time units ahead.
func (b Body) At(t float64) Body {
	return Body{Shape: b.Shape.Translate(b.Velocity.Scale(t)), Velocity: b.Velocity}
}

// Overlap is the static intersection test between any two shapes. Pairs
// without a dedicated test go through the separating-axis test, with
// circles approximated by their circumscribed polygon.
func Overlap(a, b Shape) bool {
	switch sa := a.(type) {
	case AABB:
		switch sb := b.(type) {
		case AABB:
			return sa.Overlaps(sb)
		case Circle:
			return sb.OverlapsBox(sa)
		}
	case Circle:
		switch sb := b.(type) {
		case Circle:
			return sa.Overlaps(sb)
		case AABB:
			return sa.OverlapsBox(sb)
		}
	}
	return OverlapSAT(a.Vertices(), b.Vertices())
}

// Contains reports whether inner lies fully inside outer.
func Contains(outer AABB, inner Shape) bool { return outer.Contains(inner.Bounds()) }

// Sweeper dispatches swept queries to the solver matching the shape pair
// and applies a common horizon.
type Sweeper struct {
	Horizon float64
}

// NewSweeper returns a Sweeper; a non-positive horizon selects DefaultHorizon.
func NewSweeper(horizon float64) Sweeper {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return Sweeper{Horizon: horizon}
}

// TimeToCollision returns the earliest non-negative time at which a and b
// overlap, 0 if they already do, or Never. A body without a shape never
// collides.
func (s Sweeper) TimeToCollision(a, b Body) float64 {
	if a.Shape == nil || b.Shape == nil {
		return Never
	}
	switch sa := a.Shape.(type) {
	case AABB:
		if sb, ok := b.Shape.(AABB); ok {
			return SweepBoxes(sa, a.Velocity, sb, b.Velocity, s.Horizon)
		}
	case Circle:
		if sb, ok := b.Shape.(Circle); ok {
			return SweepCircles(sa, a.Velocity, sb, b.Velocity, s.Horizon)
		}
	}
	if Overlap(a.Shape, b.Shape) {
		return 0
	}
	return SweepSAT(a.Shape.Vertices(), a.Velocity, b.Shape.Vertices(), b.Velocity, s.Horizon)
}

// TimeToExit returns when the bounds of b first leave the static box
// bounds, 0 if they are already outside, or Never.
func (s Sweeper) TimeToExit(bounds AABB, b Body) float64 {
	if b.Shape == nil {
		return Never
	}
	return ExitTime(bounds, Vec2{}, b.Shape.Bounds(), b.Velocity, s.Horizon)
}
