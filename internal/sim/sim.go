// Package sim is a headless arena that stands in for a real game host. It
// produces one snapshot per tick and advances the world every time an
// input is applied.
package sim

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/zeusync/dodgebot/internal/core/avoidance"
	"github.com/zeusync/dodgebot/internal/core/control"
	"github.com/zeusync/dodgebot/internal/core/events/bus"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

const (
	source = "sim"
	// cullMargin is how far outside the arena an object may drift before
	// it is removed.
	cullMargin = 32
)

// Stats counts what happened to the agent.
type Stats struct {
	Ticks   uint64 `json:"ticks"`
	Hits    int    `json:"hits"`
	Pickups int    `json:"pickups"`
	Bombs   int    `json:"bombs"`
	Spawned int    `json:"spawned"`
	Culled  int    `json:"culled"`
}

// HitInfo is the payload of bus.TypeHit, bus.TypePickup and bus.TypeBomb
// events.
type HitInfo struct {
	Tick uint64 `json:"tick"`
	Kind string `json:"kind"`
}

type hazard struct {
	kind avoidance.HazardKind
	body physics.Body
}

type target struct {
	body physics.Body
	meta int
}

type Option func(*Sim)

// WithEvents publishes hit, pickup and bomb events on b. Events are
// published while the world is locked; handlers must not call back into
// the Sim.
func WithEvents(b bus.EventBus) Option { return func(s *Sim) { s.events = b } }

// WithExposedVelocity reports true hazard and target velocities in
// snapshots instead of zero.
func WithExposedVelocity(on bool) Option { return func(s *Sim) { s.exposeVelocity = on } }

// Sim implements bot.StateFeed and control.Actuator.
type Sim struct {
	mu             sync.Mutex
	sc             Scenario
	arena          physics.AABB
	sweeper        physics.Sweeper
	events         bus.EventBus
	exposeVelocity bool

	tick          uint64
	agent         physics.AABB
	hazards       []hazard
	targets       []target
	disabledUntil uint64
	bombReady     uint64
	stats         Stats
}

// New builds the world described by sc inside arena. sc must be valid.
func New(sc Scenario, arena physics.AABB, opts ...Option) *Sim {
	s := &Sim{
		sc:      sc,
		arena:   arena,
		sweeper: physics.NewSweeper(physics.DefaultHorizon),
		agent:   physics.AABB{Pos: sc.Agent.Pos, Size: sc.Agent.Size},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, o := range sc.Hazards {
		kind, _ := hazardKind(o.Kind)
		shape, _ := o.shape()
		s.hazards = append(s.hazards, hazard{kind: kind, body: physics.Body{Shape: shape, Velocity: o.Velocity}})
	}
	for _, o := range sc.Targets {
		shape, _ := o.shape()
		s.targets = append(s.targets, target{body: physics.Body{Shape: shape, Velocity: o.Velocity}, meta: o.Meta})
	}
	s.spawn()
	return s
}

func (s *Sim) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Sim) Agent() physics.AABB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent
}

// Snapshot copies the current world state.
func (s *Sim) Snapshot(ctx context.Context) (avoidance.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return avoidance.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := avoidance.Snapshot{
		Tick:         s.tick,
		AgentEnabled: s.tick >= s.disabledUntil,
		Agent:        physics.Body{Shape: s.agent},
		Hazards:      make([]avoidance.Hazard, len(s.hazards)),
		Targets:      make([]avoidance.Target, len(s.targets)),
	}
	for i, h := range s.hazards {
		snap.Hazards[i] = avoidance.Hazard{Kind: h.kind, Body: s.observed(h.body)}
	}
	for i, t := range s.targets {
		snap.Targets[i] = avoidance.Target{Kind: avoidance.Collectible, Body: s.observed(t.body), Meta: t.meta}
	}
	return snap, nil
}

func (s *Sim) observed(b physics.Body) physics.Body {
	if s.exposeVelocity {
		return b
	}
	return b.WithVelocity(physics.Vec2{})
}

// Apply consumes the input for the current tick and advances the world by
// one tick.
func (s *Sim) Apply(in control.InputState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := s.tick >= s.disabledUntil
	v := physics.Vec2{}
	if enabled {
		v = s.velocity(in.Keys)
	}
	if enabled && in.Bomb && s.tick >= s.bombReady {
		s.bomb()
	}

	if enabled {
		s.collide(v)
	}
	s.agent = clampInto(s.agent.Moved(v), s.arena)
	for i := range s.hazards {
		s.hazards[i].body = s.hazards[i].body.At(1)
	}
	for i := range s.targets {
		s.targets[i].body = s.targets[i].body.At(1)
	}
	s.tick++
	s.stats.Ticks = s.tick
	s.cull()
	s.spawn()
	return nil
}

// velocity maps held keys to a displacement per tick. Opposite keys cancel
// and diagonals keep the same speed.
func (s *Sim) velocity(k control.Keys) physics.Vec2 {
	var d physics.Vec2
	if k.Has(control.KeyLeft) {
		d.X--
	}
	if k.Has(control.KeyRight) {
		d.X++
	}
	if k.Has(control.KeyUp) {
		d.Y--
	}
	if k.Has(control.KeyDown) {
		d.Y++
	}
	if d.IsZero() {
		return d
	}
	speed := s.sc.Agent.Speed
	if k.Has(control.KeyFocus) {
		speed = s.sc.Agent.FocusedSpeed
	}
	return d.Unit().Scale(speed)
}

// collide resolves the coming tick: the first hazard the moving agent
// touches within one tick counts as a hit; targets touched are picked up.
func (s *Sim) collide(v physics.Vec2) {
	agent := physics.Body{Shape: s.agent, Velocity: v}
	for _, h := range s.hazards {
		if s.sweeper.TimeToCollision(agent, h.body) <= 1 {
			s.stats.Hits++
			s.disabledUntil = s.tick + 1 + uint64(s.sc.Respawn)
			s.clearBullets()
			s.publish(bus.TypeHit, h.kind.String())
			break
		}
	}
	s.targets = slices.DeleteFunc(s.targets, func(t target) bool {
		if s.sweeper.TimeToCollision(agent, t.body) > 1 {
			return false
		}
		s.stats.Pickups++
		s.publish(bus.TypePickup, avoidance.Collectible.String())
		return true
	})
}

func (s *Sim) bomb() {
	s.stats.Bombs++
	s.bombReady = s.tick + uint64(s.sc.BombCooldown)
	s.clearBullets()
	s.publish(bus.TypeBomb, "bomb")
}

func (s *Sim) clearBullets() {
	s.hazards = slices.DeleteFunc(s.hazards, func(h hazard) bool { return h.kind == avoidance.Bullet })
}

func (s *Sim) cull() {
	bounds := physics.AABB{
		Pos:  s.arena.Pos.Sub(physics.V(cullMargin, cullMargin)),
		Size: s.arena.Size.Add(physics.V(2*cullMargin, 2*cullMargin)),
	}
	before := len(s.hazards) + len(s.targets)
	s.hazards = slices.DeleteFunc(s.hazards, func(h hazard) bool { return !physics.Overlap(bounds, h.body.Shape) })
	s.targets = slices.DeleteFunc(s.targets, func(t target) bool { return !physics.Overlap(bounds, t.body.Shape) })
	s.stats.Culled += before - len(s.hazards) - len(s.targets)
}

// spawn runs the spawners and drops due at the current tick.
func (s *Sim) spawn() {
	now := int(s.tick)
	for _, sp := range s.sc.Spawners {
		volley, due := schedule(now, sp.Start, sp.Every)
		if !due {
			continue
		}
		for i := 0; i < sp.Count; i++ {
			angle := 2*math.Pi*float64(i)/float64(sp.Count) + float64(volley)*sp.Spin
			dir := physics.V(1, 0).Rotate(angle)
			s.hazards = append(s.hazards, hazard{
				kind: avoidance.Bullet,
				body: physics.Body{Shape: physics.Circle{C: sp.Pos, R: sp.Radius}, Velocity: dir.Scale(sp.Speed)},
			})
		}
		s.stats.Spawned += sp.Count
	}
	for _, d := range s.sc.Drops {
		n, due := schedule(now, d.Start, d.Every)
		if !due {
			continue
		}
		x := d.Xs[n%len(d.Xs)]
		s.targets = append(s.targets, target{
			body: physics.Body{Shape: physics.Box(x, d.Y, d.Size, d.Size), Velocity: d.Velocity},
			meta: d.Meta,
		})
		s.stats.Spawned++
	}
}

// schedule reports whether a periodic event fires at now, and which
// occurrence it is.
func schedule(now, start, every int) (int, bool) {
	if now < start || (now-start)%every != 0 {
		return 0, false
	}
	return (now - start) / every, true
}

func (s *Sim) publish(typ, kind string) {
	if s.events == nil {
		return
	}
	// Handler errors are the subscriber's concern; the world keeps going.
	_ = s.events.Publish(bus.NewEvent(typ, source, HitInfo{Tick: s.tick, Kind: kind}))
}

func clampInto(a, bounds physics.AABB) physics.AABB {
	lo := bounds.Min()
	hi := bounds.Max().Sub(a.Size)
	a.Pos.X = math.Max(lo.X, math.Min(hi.X, a.Pos.X))
	a.Pos.Y = math.Max(lo.Y, math.Min(hi.Y, a.Pos.Y))
	return a
}
