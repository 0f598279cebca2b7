// Package calibration measures the agent's per-tick speed in unfocused and
// focused mode by driving it through a short scripted probe: tap left,
// record x, press right for one tick, measure the displacement.
package calibration

import (
	"fmt"
	"strings"

	"github.com/zeusync/dodgebot/internal/core/control"
)

// Convention states how the host's x coordinate responds to "right".
type Convention uint8

const (
	// RightPositive: pressing right increases x.
	RightPositive Convention = iota
	// RightNegative: pressing right decreases x.
	RightNegative
)

func (c Convention) String() string {
	switch c {
	case RightPositive:
		return "right_positive"
	case RightNegative:
		return "right_negative"
	default:
		return fmt.Sprintf("convention(%d)", uint8(c))
	}
}

// ParseConvention accepts the String form of a Convention.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "right_positive", "":
		return RightPositive, nil
	case "right_negative":
		return RightNegative, nil
	}
	return RightPositive, fmt.Errorf("unknown axis convention %q", s)
}

func (c Convention) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Convention) UnmarshalText(b []byte) error {
	v, err := ParseConvention(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// displacement converts an observed x change into a positive speed.
func (c Convention) displacement(startX, x float64) float64 {
	if c == RightNegative {
		return startX - x
	}
	return x - startX
}

// Step is a state of the probe sequence.
type Step uint8

const (
	StepIdle Step = iota
	StepReleaseLeft
	StepPressRight
	StepMeasure
	StepIdleFocused
	StepReleaseLeftFocused
	StepPressRightFocused
	StepDone
)

var stepNames = [...]string{"idle", "release-left", "press-right", "measure", "idle-focused", "release-left-focused", "press-right-focused", "done"}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// State is the calibration progress. Once Calibrated is set nothing changes
// until Reset.
type State struct {
	Calibrated   bool    `json:"calibrated"`
	Step         Step    `json:"step"`
	StartX       float64 `json:"start_x"`
	Speed        float64 `json:"speed"`
	FocusedSpeed float64 `json:"focused_speed"`
}

// Calibrator runs the probe, one state per tick.
type Calibrator struct {
	conv  Convention
	state State
}

func New(conv Convention) *Calibrator {
	c := &Calibrator{conv: conv}
	c.Reset()
	return c
}

// Reset returns to the first probe step and forgets measured speeds.
func (c *Calibrator) Reset() {
	c.state = State{StartX: -1}
}

func (c *Calibrator) Convention() Convention { return c.conv }
func (c *Calibrator) State() State           { return c.state }
func (c *Calibrator) Calibrated() bool       { return c.state.Calibrated }

// Speeds returns the unfocused and focused per-tick speed.
func (c *Calibrator) Speeds() (speed, focused float64) {
	return c.state.Speed, c.state.FocusedSpeed
}

// Tick advances exactly one step given the agent's current x and returns
// the input to hold for the coming tick and whether calibration is done.
// A blocked or teleported agent produces a wrong speed; that is not
// detected.
func (c *Calibrator) Tick(agentX float64) (control.InputState, bool) {
	s := &c.state
	if s.Calibrated {
		return control.Neutral(), true
	}

	var in control.InputState
	switch s.Step {
	case StepIdle:
		in.Keys = control.KeyLeft
	case StepReleaseLeft:
		s.StartX = agentX
	case StepPressRight:
		in.Keys = control.KeyRight
	case StepMeasure:
		s.Speed = c.conv.displacement(s.StartX, agentX)
	case StepIdleFocused:
		in.Keys = control.KeyLeft | control.KeyFocus
	case StepReleaseLeftFocused:
		in.Keys = control.KeyFocus
		s.StartX = agentX
	case StepPressRightFocused:
		in.Keys = control.KeyRight | control.KeyFocus
	case StepDone:
		s.FocusedSpeed = c.conv.displacement(s.StartX, agentX)
		s.Calibrated = true
		return control.Neutral(), true
	}
	s.Step++
	return in, false
}
