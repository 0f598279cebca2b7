// Package heatmap renders a coarse danger field over the arena by
// recursively splitting it into square quadrants and asking, for each
// quadrant, how soon any hazard would sweep into it.
package heatmap

import (
	"math"

	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

// Cell is one leaf of the danger field.
type Cell struct {
	Area physics.AABB `json:"area"`
	// Time until the first hazard reaches the cell, in ticks.
	Time float64 `json:"time"`
	// Intensity is MaxTicks/Time clamped to [0,1]; 1 means already hit.
	Intensity float64 `json:"intensity"`
}

// Mapper builds heat maps. The zero value is not usable; use New.
type Mapper struct {
	sweeper  physics.Sweeper
	minRes   float64
	maxTicks float64
}

// New returns a mapper that stops subdividing once a quadrant side is at
// or below minRes. maxTicks scales the intensity.
func New(horizon, minRes, maxTicks float64) *Mapper {
	if minRes <= 0 {
		minRes = 8
	}
	if maxTicks <= 0 {
		maxTicks = 100
	}
	return &Mapper{
		sweeper:  physics.NewSweeper(horizon),
		minRes:   minRes,
		maxTicks: maxTicks,
	}
}

// Build returns the leaves that some hazard reaches within the horizon.
// Quadrants nothing reaches are omitted.
func (m *Mapper) Build(hazards []physics.Body, area physics.AABB) []Cell {
	var out []Cell
	m.split(hazards, area, &out)
	return out
}

func (m *Mapper) split(hazards []physics.Body, area physics.AABB, out *[]Cell) {
	side := math.Max(area.Size.X, area.Size.Y) / 2
	if side < m.minRes || len(hazards) == 0 {
		return
	}
	c := area.Center()
	sq := physics.V(side, side)
	quadrants := [4]physics.Vec2{
		c.Sub(sq),
		physics.V(c.X, c.Y-side),
		physics.V(c.X-side, c.Y),
		c,
	}

	for _, pos := range quadrants {
		quad := physics.AABB{Pos: pos, Size: sq}
		t, hit := m.firstContact(hazards, quad)
		if physics.IsNever(t) {
			continue
		}
		if side/2 <= m.minRes {
			*out = append(*out, Cell{Area: quad, Time: t, Intensity: m.intensity(t)})
			continue
		}
		m.split(hit, quad, out)
	}
}

// firstContact returns the earliest time any hazard touches the static
// square, and the hazards that touch it at all.
func (m *Mapper) firstContact(hazards []physics.Body, quad physics.AABB) (float64, []physics.Body) {
	square := physics.Body{Shape: quad}
	best := physics.Never
	var hit []physics.Body
	for _, h := range hazards {
		t := m.sweeper.TimeToCollision(square, h)
		if physics.IsNever(t) {
			continue
		}
		best = math.Min(best, t)
		hit = append(hit, h)
	}
	return best, hit
}

func (m *Mapper) intensity(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, m.maxTicks/t))
}
