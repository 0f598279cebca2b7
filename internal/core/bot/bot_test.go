package bot

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/dodgebot/internal/core/avoidance"
	"github.com/zeusync/dodgebot/internal/core/calibration"
	"github.com/zeusync/dodgebot/internal/core/control"
	"github.com/zeusync/dodgebot/internal/core/events/bus"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

// world is a minimal host: a 4x4 agent moved 4 (or 2 focused) units per
// tick, plus whatever hazards and targets the test adds.
type world struct {
	tick     uint64
	pos      physics.Vec2
	disabled bool
	noShape  bool
	hazards  []avoidance.Hazard
	targets  []avoidance.Target
	inputs   []control.InputState
	applyErr error
}

func (w *world) Snapshot(context.Context) (avoidance.Snapshot, error) {
	w.tick++
	s := avoidance.Snapshot{
		Tick:         w.tick,
		AgentEnabled: !w.disabled,
		Agent:        physics.Body{Shape: physics.AABB{Pos: w.pos, Size: physics.V(4, 4)}},
		Hazards:      w.hazards,
		Targets:      w.targets,
	}
	if w.noShape {
		s.Agent = physics.Body{}
	}
	return s, nil
}

func (w *world) last() control.InputState {
	if len(w.inputs) == 0 {
		return control.InputState{}
	}
	return w.inputs[len(w.inputs)-1]
}

func (w *world) Apply(in control.InputState) error {
	w.inputs = append(w.inputs, in)
	if w.applyErr != nil {
		return w.applyErr
	}
	for _, d := range control.Directions() {
		if d.Keys() == in.Keys {
			w.pos = w.pos.Add(d.Velocity(4, 2))
			break
		}
	}
	return nil
}

func newBot(w *world, opts ...Option) *Bot {
	return New(w, w, calibration.New(calibration.RightPositive), avoidance.NewEvaluator(avoidance.DefaultParams()), opts...)
}

func runTicks(t *testing.T, b *Bot, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		res, err := b.Tick(context.Background())
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func TestCalibrationThenEvaluation(t *testing.T) {
	w := &world{pos: physics.V(100, 300)}
	events := bus.New()
	var calibrated []CalibratedInfo
	var ticks []TickInfo
	_, _ = events.Subscribe(bus.TypeCalibrated, func(e bus.Event) error {
		calibrated = append(calibrated, e.Data().(CalibratedInfo))
		return nil
	})
	_, _ = events.Subscribe(bus.TypeTick, func(e bus.Event) error {
		ticks = append(ticks, e.Data().(TickInfo))
		return nil
	})

	b := newBot(w, WithEvents(events))
	results := runTicks(t, b, 8)
	for _, r := range results {
		assert.Equal(t, PhaseCalibrating, r.Phase)
		assert.Nil(t, r.Decision)
	}
	require.Len(t, calibrated, 1)
	assert.Equal(t, 4.0, calibrated[0].Speed)
	assert.Equal(t, 2.0, calibrated[0].FocusedSpeed)
	assert.Equal(t, "right_positive", calibrated[0].Convention)
	assert.Equal(t, physics.V(100, 300), w.pos, "probe returns the agent to its start")
	assert.Empty(t, ticks)

	w.targets = []avoidance.Target{{Kind: avoidance.Collectible, Body: physics.Body{Shape: physics.Box(150, 301, 2, 2)}}}
	res := runTicks(t, b, 1)[0]
	assert.Equal(t, PhaseEvaluating, res.Phase)
	require.NotNil(t, res.Decision)
	assert.Equal(t, control.Right, res.Decision.Direction)
	assert.Equal(t, control.KeyRight, res.Input.Keys)
	assert.True(t, res.Input.Fire)
	assert.True(t, res.Input.Skip)

	require.Len(t, ticks, 1)
	assert.Equal(t, "right", ticks[0].Direction)
	assert.True(t, ticks[0].Pursuing)
	assert.Equal(t, res.Digest, ticks[0].Digest)
	assert.Equal(t, 1, b.Risk().Len())
	assert.Equal(t, []float64{res.Decision.Collision[control.Right]}, b.Risk().Values(), "risk follows the chosen move")
	assert.True(t, math.IsInf(res.Decision.Collision[control.Hold], 1))

	s := b.Stats()
	assert.Equal(t, uint64(9), s.Ticks)
	assert.Equal(t, uint64(1), s.Evaluated)
	assert.Equal(t, uint64(1), s.Pursuits)
}

func TestDisabledAgentIsNeutralAndKeepsCalibration(t *testing.T) {
	w := &world{pos: physics.V(100, 300), disabled: true}
	b := newBot(w)

	for _, r := range runTicks(t, b, 3) {
		assert.Equal(t, PhaseDisabled, r.Phase)
		assert.Equal(t, control.Neutral(), r.Input)
	}
	assert.Equal(t, calibration.StepIdle, b.Calibration().Step)

	w.disabled = false
	runTicks(t, b, 1)
	assert.Equal(t, calibration.StepReleaseLeft, b.Calibration().Step)
}

func TestEvadeNowRaisesBomb(t *testing.T) {
	w := &world{pos: physics.V(100, 300)}
	b := newBot(w, WithRiskWindow(4))
	runTicks(t, b, 8)

	w.hazards = []avoidance.Hazard{{Kind: avoidance.Bullet, Body: physics.Body{Shape: physics.Box(90, 290, 30, 30)}}}
	res := runTicks(t, b, 1)[0]
	require.NotNil(t, res.Decision)
	assert.True(t, res.Input.Bomb)
	assert.Equal(t, uint64(1), b.Stats().Evades)
	assert.Equal(t, 0.0, b.Risk().Min())
}

func TestErrors(t *testing.T) {
	feedErr := errors.New("feed down")
	var applied []control.InputState
	b := New(StateFeedFunc(func(context.Context) (avoidance.Snapshot, error) {
		return avoidance.Snapshot{}, feedErr
	}), control.ActuatorFunc(func(in control.InputState) error {
		applied = append(applied, in)
		return nil
	}), calibration.New(calibration.RightPositive), avoidance.NewEvaluator(avoidance.DefaultParams()))
	res, err := b.Tick(context.Background())
	assert.ErrorIs(t, err, feedErr)
	assert.Equal(t, []control.InputState{control.Neutral()}, applied)
	assert.Equal(t, PhaseDisabled, res.Phase)

	w := &world{pos: physics.V(100, 300), applyErr: errors.New("pipe closed")}
	_, err = newBot(w).Tick(context.Background())
	assert.ErrorIs(t, err, w.applyErr)

	noAgent := New(StateFeedFunc(func(context.Context) (avoidance.Snapshot, error) {
		return avoidance.Snapshot{AgentEnabled: true}, nil
	}), w, calibration.New(calibration.RightPositive), avoidance.NewEvaluator(avoidance.DefaultParams()))
	_, err = noAgent.Tick(context.Background())
	assert.ErrorIs(t, err, ErrNoAgent)
	assert.ErrorIs(t, err, w.applyErr, "a failing actuator is reported too")
	assert.Equal(t, control.Neutral(), w.last())
	assert.Equal(t, uint64(1), noAgent.Stats().Errors)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newBot(&world{}).Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingAgentReleasesHeldKeys(t *testing.T) {
	w := &world{pos: physics.V(100, 300)}
	b := newBot(w)

	runTicks(t, b, 1)
	require.Equal(t, control.KeyLeft, w.last().Keys, "first calibration step holds left")

	w.noShape = true
	res, err := b.Tick(context.Background())
	require.ErrorIs(t, err, ErrNoAgent)
	assert.Len(t, w.inputs, 2)
	assert.Equal(t, control.Neutral(), w.last())
	assert.Equal(t, control.Neutral(), res.Input)
	assert.Equal(t, calibration.StepReleaseLeft, b.Calibration().Step, "calibration does not advance")
}

func TestTickInfoCarriesHazards(t *testing.T) {
	w := &world{pos: physics.V(100, 300)}
	events := bus.New()
	var info TickInfo
	_, _ = events.Subscribe(bus.TypeTick, func(e bus.Event) error {
		info = e.Data().(TickInfo)
		return nil
	})
	b := newBot(w, WithEvents(events))
	runTicks(t, b, 8)

	far := physics.Body{Shape: physics.Box(10, 10, 2, 2)}
	incoming := physics.Body{Shape: physics.Box(100, 200, 4, 4), Velocity: physics.V(0, 2)}
	w.hazards = []avoidance.Hazard{{Kind: avoidance.Bullet, Body: far}, {Kind: avoidance.Bullet, Body: incoming}}
	runTicks(t, b, 1)

	assert.Equal(t, 2, info.Hazards)
	assert.Equal(t, []physics.Body{far, incoming}, info.HazardBodies)
	require.Len(t, info.HazardTimes, 2)
	assert.Equal(t, -1.0, info.HazardTimes[0])
	assert.InDelta(t, 48, info.HazardTimes[1], 1e-9)
}

func TestRunStopsAfterN(t *testing.T) {
	w := &world{pos: physics.V(100, 300)}
	b := newBot(w)
	require.NoError(t, b.Run(context.Background(), 12, 0))
	assert.Equal(t, uint64(12), b.Stats().Ticks)
	assert.True(t, b.Calibration().Calibrated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Run(ctx, 0, 1), context.Canceled)
}

func TestRiskHistory(t *testing.T) {
	r := NewRiskHistory(3)
	assert.True(t, math.IsInf(r.Min(), 1))
	for _, v := range []float64{5, 4, 3, 2} {
		r.Push(v)
	}
	assert.Equal(t, []float64{4, 3, 2}, r.Values())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2.0, r.Min())
}
