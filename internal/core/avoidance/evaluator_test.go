package avoidance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/dodgebot/internal/core/control"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

const (
	speed        = 4.0
	focusedSpeed = 2.0
)

func agentAt(x, y float64) physics.Body {
	return physics.Body{Shape: physics.Box(x, y, 4, 4)}
}

func bullet(shape physics.Shape, v physics.Vec2) Hazard {
	return Hazard{Kind: Bullet, Body: physics.Body{Shape: shape, Velocity: v}}
}

func collectible(shape physics.Shape) Target {
	return Target{Kind: Collectible, Body: physics.Body{Shape: shape}}
}

// boxedIn leaves a single escape route: a wall closes in from the right at
// speed 3 and static slabs sit half a unit above and below the agent. Only
// unfocused Left outruns the wall without touching a slab.
func boxedIn() Snapshot {
	return Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Hazards: []Hazard{
			bullet(physics.Box(104.5, 250, 10, 100), physics.V(-3, 0)),
			bullet(physics.Box(0, 290, 120, 9.5), physics.Vec2{}),
			bullet(physics.Box(0, 304.5, 120, 10), physics.Vec2{}),
		},
		Targets: []Target{collectible(physics.Box(50, 301, 2, 2))},
	}
}

func TestEvaluateNoHazardsPursuesReachableTarget(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	s := Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Targets:      []Target{collectible(physics.Box(150, 301, 2, 2))},
	}
	d := e.Evaluate(s, speed, focusedSpeed)

	assert.Equal(t, control.Right, d.Direction)
	assert.True(t, d.Pursuing)
	assert.False(t, d.Threatened)
	assert.False(t, d.EvadeNow)
	assert.InDelta(t, 11.5, d.Target[control.Right], 1e-9)
	assert.InDelta(t, 23, d.Target[control.FocusRight], 1e-9)
	assert.True(t, physics.IsNever(d.Target[control.Left]))
	assert.InDelta(t, 70, d.Collision[control.Right], 1e-9, "arena exit bounds the right move")
	assert.True(t, physics.IsNever(d.Collision[control.Hold]))
}

func TestEvaluateEvadesThroughOnlyOpening(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	d := e.Evaluate(boxedIn(), speed, focusedSpeed)

	require.Equal(t, control.Left, d.Direction)
	assert.False(t, d.Pursuing, "no pursuit while any direction is in near-term danger")
	assert.True(t, d.Threatened)
	assert.False(t, d.EvadeNow)
	assert.InDelta(t, 25, d.Collision[control.Left], 1e-9)
	assert.InDelta(t, 12, d.Target[control.Left], 1e-9)
	for _, dir := range control.Directions()[1:] {
		if dir == control.Left {
			continue
		}
		assert.Less(t, d.Collision[dir], 1.0, dir.String())
	}
	require.Len(t, d.HazardTimes, 3)
	assert.InDelta(t, 0.5/3, d.HazardTimes[0], 1e-9)
	assert.True(t, physics.IsNever(d.HazardTimes[1]))
}

func TestEvaluateIgnoresShapelessBodies(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	clean := Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Targets:      []Target{collectible(physics.Box(150, 301, 2, 2))},
	}
	want := e.Evaluate(clean, speed, focusedSpeed)

	s := clean
	s.Hazards = []Hazard{{Kind: Bullet}, {Kind: Enemy, Body: physics.Body{Velocity: physics.V(1, 0)}}}
	s.Targets = append([]Target{{Kind: Collectible}}, clean.Targets...)

	var d Decision
	require.NotPanics(t, func() { d = e.Evaluate(s, speed, focusedSpeed) })
	assert.Equal(t, want.Direction, d.Direction)
	assert.Equal(t, want.Collision, d.Collision)
	assert.Equal(t, want.Target, d.Target)
	assert.False(t, d.Threatened)
	require.Len(t, d.HazardTimes, 2)
	assert.True(t, physics.IsNever(d.HazardTimes[0]))

	// A missing agent degrades to holding.
	require.NotPanics(t, func() {
		d = e.Evaluate(Snapshot{AgentEnabled: true, Hazards: s.Hazards, Targets: s.Targets}, speed, focusedSpeed)
	})
	assert.Equal(t, control.Hold, d.Direction)
	assert.False(t, d.Pursuing)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	for _, s := range []Snapshot{boxedIn(), {AgentEnabled: true, Agent: agentAt(10, 10)}} {
		first := e.Evaluate(s, speed, focusedSpeed)
		second := e.Evaluate(s, speed, focusedSpeed)
		require.Equal(t, first, second)
	}
}

func TestEvaluateNothingAroundHolds(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	d := e.Evaluate(Snapshot{AgentEnabled: true, Agent: agentAt(100, 300)}, speed, focusedSpeed)
	assert.Equal(t, control.Hold, d.Direction)
	assert.False(t, d.Threatened)
	assert.False(t, d.Pursuing)
	for _, dir := range control.Directions() {
		assert.True(t, physics.IsNever(d.Target[dir]))
	}
}

func TestEvaluateArenaExitCountsAsCollision(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	d := e.Evaluate(Snapshot{AgentEnabled: true, Agent: agentAt(378, 300)}, speed, focusedSpeed)
	assert.InDelta(t, 0.5, d.Collision[control.Right], 1e-9)
	assert.InDelta(t, 1, d.Collision[control.FocusRight], 1e-9)
	assert.Equal(t, control.Hold, d.Direction)
	assert.False(t, d.EvadeNow)
}

func TestEvaluateAlreadyHitRaisesEvade(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	s := Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Hazards:      []Hazard{bullet(physics.Box(90, 290, 30, 30), physics.Vec2{})},
	}
	d := e.Evaluate(s, speed, focusedSpeed)
	assert.Equal(t, control.Up, d.Direction, "all tied at zero: lowest moving index")
	assert.True(t, d.EvadeNow)
	assert.True(t, d.Input().Bomb)
}

func TestEvaluateHoldPolicy(t *testing.T) {
	cage := Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Hazards: []Hazard{
			bullet(physics.Box(90, 290, 30, 9.5), physics.Vec2{}),
			bullet(physics.Box(90, 304.5, 30, 10), physics.Vec2{}),
			bullet(physics.Box(104.5, 290, 10, 30), physics.Vec2{}),
			bullet(physics.Box(85.5, 290, 14, 30), physics.Vec2{}),
		},
	}

	d := NewEvaluator(DefaultParams()).Evaluate(cage, speed, focusedSpeed)
	assert.True(t, d.Threatened)
	assert.True(t, physics.IsNever(d.Collision[control.Hold]), "static hazards never reach a still agent")
	assert.NotEqual(t, control.Hold, d.Direction)
	assert.True(t, d.EvadeNow)

	p := DefaultParams()
	p.HoldPolicy = HoldAlways
	d = NewEvaluator(p).Evaluate(cage, speed, focusedSpeed)
	assert.Equal(t, control.Hold, d.Direction)
	assert.False(t, d.EvadeNow)
}

func TestEvaluateLureTowardsEnemyAbove(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	s := Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Hazards:      []Hazard{{Kind: Enemy, Body: physics.Body{Shape: physics.Box(145, 95, 10, 10)}}},
	}
	d := e.Evaluate(s, speed, focusedSpeed)
	assert.InDelta(t, 12, d.Target[control.Right], 1e-9)
	assert.True(t, physics.IsNever(d.Target[control.Left]), "enemy is to the right")
	assert.True(t, physics.IsNever(d.Target[control.FocusRight]), "lure only applies to plain lateral moves")
	assert.Equal(t, control.Right, d.Direction)
	assert.True(t, d.Pursuing)

	// An enemy below the agent is not a lure.
	s.Hazards[0].Body.Shape = physics.Box(145, 400, 10, 10)
	d = e.Evaluate(s, speed, focusedSpeed)
	assert.True(t, physics.IsNever(d.Target[control.Right]))

	// Uncalibrated (zero) speed disables the estimate instead of dividing by zero.
	s.Hazards[0].Body.Shape = physics.Box(145, 95, 10, 10)
	d = e.Evaluate(s, 0, 0)
	assert.True(t, physics.IsNever(d.Target[control.Right]))
	assert.Equal(t, control.Hold, d.Direction)
}

func TestEvaluateEligibility(t *testing.T) {
	e := NewEvaluator(DefaultParams())
	s := Snapshot{
		AgentEnabled: true,
		Agent:        agentAt(100, 300),
		Targets: []Target{
			{Kind: Collectible, Meta: 1, Body: physics.Body{Shape: physics.Box(150, 301, 2, 2)}},
			collectible(physics.Box(100, 100, 4, 4)),
		},
	}
	d := e.Evaluate(s, speed, focusedSpeed)
	assert.True(t, physics.IsNever(d.Target.Min(control.Directions()...)))
	assert.False(t, d.Pursuing)

	none := NewEvaluator(Params{Horizon: 100, Arena: physics.Box(0, 0, 384, 448)})
	d = none.Evaluate(Snapshot{Agent: agentAt(100, 300), Targets: []Target{collectible(physics.Box(150, 301, 2, 2))}}, speed, focusedSpeed)
	assert.False(t, d.Pursuing)
}

func TestDecisionInput(t *testing.T) {
	in := Decision{Direction: control.FocusDownLeft}.Input()
	assert.Equal(t, control.KeyDown|control.KeyLeft|control.KeyFocus, in.Keys)
	assert.True(t, in.Fire)
	assert.True(t, in.Skip)
	assert.False(t, in.Bomb)
}

func TestSnapshotDigest(t *testing.T) {
	a := boxedIn()
	b := boxedIn()
	b.Tick = 99
	assert.Equal(t, a.Digest(), b.Digest(), "tick counter does not affect the digest")

	b.Hazards[0].Body.Velocity = physics.V(-2, 0)
	assert.NotEqual(t, a.Digest(), b.Digest())

	c := boxedIn()
	c.AgentEnabled = false
	assert.NotEqual(t, a.Digest(), c.Digest())

	circ := Snapshot{Agent: physics.Body{Shape: physics.Circle{C: physics.V(1, 2), R: 3}}}
	poly := Snapshot{Agent: physics.Body{Shape: physics.Polygon{Points: []physics.Vec2{physics.V(1, 2)}}}}
	assert.NotEqual(t, circ.Digest(), poly.Digest())
}

func TestHoldPolicyText(t *testing.T) {
	var p HoldPolicy
	require.NoError(t, p.UnmarshalText([]byte("always")))
	assert.Equal(t, HoldAlways, p)
	assert.Error(t, p.UnmarshalText([]byte("never")))
	assert.Equal(t, "unthreatened", HoldWhenUnthreatened.String())
}
