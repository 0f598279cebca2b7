package avoidance

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

// HazardKind classifies dangerous bodies. The evaluator treats all kinds
// alike except Enemy, which also serves as a lure point.
type HazardKind uint8

const (
	Bullet HazardKind = iota
	Beam
	Enemy
)

func (k HazardKind) String() string {
	switch k {
	case Bullet:
		return "bullet"
	case Beam:
		return "beam"
	case Enemy:
		return "enemy"
	default:
		return fmt.Sprintf("hazard(%d)", uint8(k))
	}
}

// TargetKind classifies beneficial bodies.
type TargetKind uint8

const (
	Collectible TargetKind = iota
)

func (k TargetKind) String() string {
	if k == Collectible {
		return "collectible"
	}
	return fmt.Sprintf("target(%d)", uint8(k))
}

// Hazard is a dangerous moving body. Velocity is zero unless the state
// feed measured it.
type Hazard struct {
	Kind HazardKind
	Body physics.Body
}

// Target is a beneficial moving body. Meta is host-defined metadata used by
// eligibility predicates (e.g. the collectible subtype).
type Target struct {
	Kind TargetKind
	Body physics.Body
	Meta int
}

// Snapshot is the immutable per-tick view of the arena. Callers must not
// mutate the slices while an evaluation is running.
type Snapshot struct {
	Tick         uint64
	AgentEnabled bool
	// Agent carries the agent's current shape; its velocity is ignored.
	Agent   physics.Body
	Hazards []Hazard
	Targets []Target
}

// Digest fingerprints everything that can influence a decision (the tick
// counter excluded), so repeated identical snapshots share a digest.
func (s Snapshot) Digest() uint64 {
	h := digester{d: xxhash.New()}
	if s.AgentEnabled {
		h.tag(1)
	} else {
		h.tag(0)
	}
	h.body(s.Agent)
	for _, hz := range s.Hazards {
		h.tag(byte(hz.Kind))
		h.body(hz.Body)
	}
	h.tag(0xff)
	for _, tg := range s.Targets {
		h.tag(byte(tg.Kind))
		h.float(float64(tg.Meta))
		h.body(tg.Body)
	}
	return h.d.Sum64()
}

type digester struct {
	d   *xxhash.Digest
	buf [8]byte
}

func (h *digester) tag(b byte) { _, _ = h.d.Write([]byte{b}) }

func (h *digester) float(f float64) {
	binary.LittleEndian.PutUint64(h.buf[:], math.Float64bits(f))
	_, _ = h.d.Write(h.buf[:])
}

func (h *digester) vec(v physics.Vec2) {
	h.float(v.X)
	h.float(v.Y)
}

func (h *digester) body(b physics.Body) {
	if b.Shape == nil {
		h.tag(0xfe)
		return
	}
	h.tag(byte(b.Shape.Kind()))
	switch sh := b.Shape.(type) {
	case physics.AABB:
		h.vec(sh.Pos)
		h.vec(sh.Size)
	case physics.Circle:
		h.vec(sh.C)
		h.float(sh.R)
	case physics.Polygon:
		h.float(float64(len(sh.Points)))
		for _, p := range sh.Points {
			h.vec(p)
		}
	}
	h.vec(b.Velocity)
}
