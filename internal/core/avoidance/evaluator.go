// Package avoidance chooses one movement direction per tick. For every
// candidate direction it extrapolates the agent at that direction's speed,
// asks the geometry kernel when it would first touch each hazard, target
// and the arena wall, and then either pursues a target that is reachable
// before any collision or flees in the direction with the longest runway.
package avoidance

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeusync/dodgebot/internal/core/control"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

// HoldPolicy decides when "hold position" competes during evasion.
type HoldPolicy uint8

const (
	// HoldWhenUnthreatened allows holding only when no hazard predicts a
	// collision in any direction. Hazard velocities are usually unknown and
	// taken as zero, which overestimates how long standing still is safe.
	HoldWhenUnthreatened HoldPolicy = iota
	// HoldAlways lets holding compete like any other direction. Only
	// sensible when the state feed supplies real hazard velocities.
	HoldAlways
)

func (p HoldPolicy) String() string {
	switch p {
	case HoldWhenUnthreatened:
		return "unthreatened"
	case HoldAlways:
		return "always"
	default:
		return fmt.Sprintf("hold_policy(%d)", uint8(p))
	}
}

func ParseHoldPolicy(s string) (HoldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unthreatened", "":
		return HoldWhenUnthreatened, nil
	case "always":
		return HoldAlways, nil
	}
	return HoldWhenUnthreatened, fmt.Errorf("unknown hold policy %q", s)
}

func (p HoldPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *HoldPolicy) UnmarshalText(b []byte) error {
	v, err := ParseHoldPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Eligibility filters the targets worth pursuing.
type Eligibility func(Target) bool

// MinDepth accepts plain collectibles (Meta == 0) whose center lies below
// the horizontal line y = minY.
func MinDepth(minY float64) Eligibility {
	return func(t Target) bool {
		return t.Kind == Collectible && t.Meta == 0 && t.Body.Shape.Center().Y > minY
	}
}

// Params tunes the evaluator. Times are in ticks.
type Params struct {
	Horizon float64
	// SafetyMargin: pursuit needs every moving direction to stay clear
	// for longer than this.
	SafetyMargin float64
	// ComfortMargin: pursuit needs at least one direction clear for
	// longer than this.
	ComfortMargin float64
	// EvadeThreshold: a chosen direction colliding sooner than this
	// raises the evade-now signal.
	EvadeThreshold float64
	Arena          physics.AABB
	HoldPolicy     HoldPolicy
	Eligible       Eligibility
}

// DefaultParams returns the tuning used against a 384x448 playfield.
func DefaultParams() Params {
	return Params{
		Horizon:        physics.DefaultHorizon,
		SafetyMargin:   1,
		ComfortMargin:  100,
		EvadeThreshold: 0.5,
		Arena:          physics.Box(0, 0, 384, 448),
		HoldPolicy:     HoldWhenUnthreatened,
		Eligible:       MinDepth(200),
	}
}

// Times holds one value per direction, indexed by control.Direction.
type Times [control.DirectionCount]float64

func neverTimes() Times {
	var t Times
	for i := range t {
		t[i] = physics.Never
	}
	return t
}

// Min returns the smallest value over dirs.
func (t *Times) Min(dirs ...control.Direction) float64 {
	out := math.Inf(1)
	for _, d := range dirs {
		out = math.Min(out, t[d])
	}
	return out
}

// Max returns the largest value over dirs.
func (t *Times) Max(dirs ...control.Direction) float64 {
	out := math.Inf(-1)
	for _, d := range dirs {
		out = math.Max(out, t[d])
	}
	return out
}

// Decision is the outcome of one evaluation. It is recomputed from scratch
// every tick.
type Decision struct {
	Direction control.Direction
	// EvadeNow asks for the emergency defensive action.
	EvadeNow bool
	// Pursuing is set when Direction was chosen to reach a target.
	Pursuing bool
	// Threatened is set when some hazard predicts a collision in some
	// direction.
	Threatened bool
	Collision  Times
	Target     Times
	// HazardTimes[i] is the collision time with Hazards[i] when holding.
	HazardTimes []float64
}

// Input maps the decision to the full signal set: movement keys, fire and
// dialogue skip held continuously, bomb on evade-now.
func (d Decision) Input() control.InputState {
	in := control.Move(d.Direction)
	in.Fire = true
	in.Skip = true
	in.Bomb = d.EvadeNow
	return in
}

// Evaluator is stateless between calls; the same snapshot and speeds
// always produce the same decision.
type Evaluator struct {
	params  Params
	sweeper physics.Sweeper
	moving  []control.Direction
	all     []control.Direction
}

func NewEvaluator(p Params) *Evaluator {
	if p.Eligible == nil {
		p.Eligible = func(Target) bool { return false }
	}
	all := control.Directions()
	return &Evaluator{
		params:  p,
		sweeper: physics.NewSweeper(p.Horizon),
		moving:  all[1:],
		all:     all,
	}
}

func (e *Evaluator) Params() Params { return e.params }

// Evaluate picks the direction for this tick given the calibrated speeds.
// Zero speeds make every direction identical; the result is then
// meaningless but still well-formed. Bodies without a shape are ignored.
func (e *Evaluator) Evaluate(s Snapshot, speed, focusedSpeed float64) Decision {
	d := Decision{
		Collision:   neverTimes(),
		Target:      neverTimes(),
		HazardTimes: make([]float64, len(s.Hazards)),
	}

	var probes [control.DirectionCount]physics.Body
	for _, dir := range e.all {
		probes[dir] = s.Agent.WithVelocity(dir.Velocity(speed, focusedSpeed))
	}

	for i, h := range s.Hazards {
		d.HazardTimes[i] = physics.Never
		for _, dir := range e.all {
			t := e.sweeper.TimeToCollision(probes[dir], h.Body)
			if physics.IsNever(t) {
				continue
			}
			d.Threatened = true
			d.Collision[dir] = math.Min(d.Collision[dir], t)
			if dir == control.Hold {
				d.HazardTimes[i] = t
			}
		}
	}

	for _, tg := range s.Targets {
		if tg.Body.Shape == nil || !e.params.Eligible(tg) {
			continue
		}
		for _, dir := range e.all {
			d.Target[dir] = math.Min(d.Target[dir], e.sweeper.TimeToCollision(probes[dir], tg.Body))
		}
	}
	e.lure(s, &probes, &d.Target)

	for _, dir := range e.moving {
		d.Collision[dir] = math.Min(d.Collision[dir], e.sweeper.TimeToExit(e.params.Arena, probes[dir]))
	}

	if dir, ok := e.pursue(&d); ok {
		d.Direction = dir
		d.Pursuing = true
	} else {
		d.Direction = e.evade(&d)
	}
	d.EvadeNow = d.Collision[d.Direction] < e.params.EvadeThreshold
	return d
}

// lure estimates, for enemies above the agent, how long a purely lateral
// move takes to line up with them horizontally. Near-zero lateral speed
// yields no estimate.
func (e *Evaluator) lure(s Snapshot, probes *[control.DirectionCount]physics.Body, target *Times) {
	if s.Agent.Shape == nil {
		return
	}
	agent := s.Agent.Shape.Center()
	for _, h := range s.Hazards {
		if h.Kind != Enemy || h.Body.Shape == nil {
			continue
		}
		c := h.Body.Shape.Center()
		if c.Y >= agent.Y {
			continue
		}
		for _, dir := range []control.Direction{control.Left, control.Right} {
			vx := probes[dir].Velocity.X
			if math.Abs(vx) < physics.Epsilon {
				continue
			}
			t := (c.X - agent.X) / vx
			if t >= 0 && t < e.params.Horizon {
				target[dir] = math.Min(target[dir], t)
			}
		}
	}
}

// pursue is allowed only when no moving direction is in near-term danger
// and some direction offers a long runway. It returns the direction that
// reaches a target soonest and strictly before colliding.
func (e *Evaluator) pursue(d *Decision) (control.Direction, bool) {
	if d.Collision.Min(e.moving...) <= e.params.SafetyMargin ||
		d.Collision.Max(e.all...) <= e.params.ComfortMargin {
		return control.Hold, false
	}
	best, found := control.Hold, false
	for _, dir := range e.all {
		if d.Target[dir] >= d.Collision[dir] {
			continue
		}
		if !found || d.Target[dir] < d.Target[best] {
			best, found = dir, true
		}
	}
	return best, found
}

// evade picks the moving direction with the longest time to collision,
// lowest index on ties. Holding competes per the hold policy and wins ties.
func (e *Evaluator) evade(d *Decision) control.Direction {
	best := control.Up
	if !d.Threatened || e.params.HoldPolicy == HoldAlways {
		best = control.Hold
	}
	for _, dir := range e.moving {
		if d.Collision[dir] > d.Collision[best] {
			best = dir
		}
	}
	return best
}
