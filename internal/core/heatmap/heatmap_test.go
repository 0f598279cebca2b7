package heatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

func TestBuildStaticHazard(t *testing.T) {
	m := New(0, 8, 10)
	cells := m.Build([]physics.Body{{Shape: physics.Box(1, 1, 2, 2)}}, physics.Box(0, 0, 64, 64))

	require.Len(t, cells, 1)
	assert.Equal(t, physics.Box(0, 0, 16, 16), cells[0].Area)
	assert.Equal(t, 0.0, cells[0].Time)
	assert.Equal(t, 1.0, cells[0].Intensity)
}

func TestBuildMovingHazard(t *testing.T) {
	m := New(0, 8, 10)
	hazard := physics.Body{Shape: physics.Box(40, 4, 2, 2), Velocity: physics.V(-1, 0)}
	cells := m.Build([]physics.Body{hazard}, physics.Box(0, 0, 64, 64))

	require.Len(t, cells, 3)

	assert.Equal(t, physics.Box(0, 0, 16, 16), cells[0].Area)
	assert.InDelta(t, 24, cells[0].Time, 1e-9)
	assert.InDelta(t, 10.0/24, cells[0].Intensity, 1e-9)

	assert.Equal(t, physics.Box(16, 0, 16, 16), cells[1].Area)
	assert.InDelta(t, 8, cells[1].Time, 1e-9)
	assert.Equal(t, 1.0, cells[1].Intensity)

	assert.Equal(t, physics.Box(32, 0, 16, 16), cells[2].Area)
	assert.Equal(t, 0.0, cells[2].Time)
}

func TestBuildEmpty(t *testing.T) {
	m := New(0, 8, 10)
	assert.Empty(t, m.Build(nil, physics.Box(0, 0, 64, 64)))
	assert.Empty(t, m.Build([]physics.Body{{Shape: physics.Box(1, 1, 2, 2)}}, physics.Box(0, 0, 8, 8)),
		"areas below the resolution are not split")
}

func TestBuildNonSquareArenaCoversEverything(t *testing.T) {
	m := New(0, 16, 100)
	hazards := []physics.Body{
		{Shape: physics.Circle{C: physics.V(380, 440), R: 2}},
		{Shape: physics.Circle{C: physics.V(4, 4), R: 2}},
	}
	cells := m.Build(hazards, physics.Box(0, 0, 384, 448))
	require.Len(t, cells, 2)
	for _, c := range cells {
		assert.Equal(t, 0.0, c.Time)
		assert.LessOrEqual(t, c.Area.Size.X, 32.0)
	}
}
