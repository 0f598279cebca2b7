package control

import "strings"

// Keys is a bitmask of the directional and modifier signals.
type Keys uint8

const (
	KeyUp Keys = 1 << iota
	KeyDown
	KeyLeft
	KeyRight
	KeyFocus
)

func (k Keys) Has(o Keys) bool { return k&o == o }

func (k Keys) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	for _, kv := range []struct {
		k    Keys
		name string
	}{{KeyUp, "up"}, {KeyDown, "down"}, {KeyLeft, "left"}, {KeyRight, "right"}, {KeyFocus, "focus"}} {
		if k.Has(kv.k) {
			parts = append(parts, kv.name)
		}
	}
	return strings.Join(parts, "+")
}

// InputState is the complete signal set for one tick. Nothing carries over
// between ticks: a signal absent here is released.
type InputState struct {
	Keys Keys `json:"keys"`
	// Fire is the continuous primary action.
	Fire bool `json:"fire"`
	// Bomb is the one-shot emergency defensive action.
	Bomb bool `json:"bomb"`
	// Skip advances dialogue.
	Skip bool `json:"skip"`
}

// Neutral releases every signal.
func Neutral() InputState { return InputState{} }

// Move holds the keys for d and nothing else.
func Move(d Direction) InputState { return InputState{Keys: d.Keys()} }

// Actuator delivers input to the controlled agent.
type Actuator interface {
	Apply(in InputState) error
}

// ActuatorFunc adapts a function to Actuator.
type ActuatorFunc func(in InputState) error

func (f ActuatorFunc) Apply(in InputState) error { return f(in) }
