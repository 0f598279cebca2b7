// Package control defines the discrete movement choices evaluated each tick
// and the complete input signal set emitted to the controlled agent.
package control

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

// Direction is one candidate movement for a tick. Hold is always index 0.
type Direction uint8

const (
	Hold Direction = iota
	Up
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
	FocusUp
	FocusDown
	FocusLeft
	FocusRight
	FocusUpLeft
	FocusUpRight
	FocusDownLeft
	FocusDownRight

	DirectionCount int = iota
)

type directionSpec struct {
	name    string
	unit    physics.Vec2
	focused bool
	keys    Keys
}

var diag = 1 / math.Sqrt2

var directions = [DirectionCount]directionSpec{
	Hold:           {"hold", physics.Vec2{}, false, 0},
	Up:             {"up", physics.V(0, -1), false, KeyUp},
	Down:           {"down", physics.V(0, 1), false, KeyDown},
	Left:           {"left", physics.V(-1, 0), false, KeyLeft},
	Right:          {"right", physics.V(1, 0), false, KeyRight},
	UpLeft:         {"up-left", physics.V(-diag, -diag), false, KeyUp | KeyLeft},
	UpRight:        {"up-right", physics.V(diag, -diag), false, KeyUp | KeyRight},
	DownLeft:       {"down-left", physics.V(-diag, diag), false, KeyDown | KeyLeft},
	DownRight:      {"down-right", physics.V(diag, diag), false, KeyDown | KeyRight},
	FocusUp:        {"focus-up", physics.V(0, -1), true, KeyUp | KeyFocus},
	FocusDown:      {"focus-down", physics.V(0, 1), true, KeyDown | KeyFocus},
	FocusLeft:      {"focus-left", physics.V(-1, 0), true, KeyLeft | KeyFocus},
	FocusRight:     {"focus-right", physics.V(1, 0), true, KeyRight | KeyFocus},
	FocusUpLeft:    {"focus-up-left", physics.V(-diag, -diag), true, KeyUp | KeyLeft | KeyFocus},
	FocusUpRight:   {"focus-up-right", physics.V(diag, -diag), true, KeyUp | KeyRight | KeyFocus},
	FocusDownLeft:  {"focus-down-left", physics.V(-diag, diag), true, KeyDown | KeyLeft | KeyFocus},
	FocusDownRight: {"focus-down-right", physics.V(diag, diag), true, KeyDown | KeyRight | KeyFocus},
}

// Directions returns every direction in enumeration order.
func Directions() []Direction {
	out := make([]Direction, DirectionCount)
	for i := range out {
		out[i] = Direction(i)
	}
	return out
}

func (d Direction) Valid() bool { return int(d) < DirectionCount }

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
	return directions[d].name
}

// Unit is the unit velocity of the direction; zero for Hold.
func (d Direction) Unit() physics.Vec2 { return directions[d].unit }

// Focused reports whether the direction moves at the focused speed.
func (d Direction) Focused() bool { return directions[d].focused }

// Keys is the set of held keys that produces the movement.
func (d Direction) Keys() Keys { return directions[d].keys }

// Velocity scales the unit vector by the speed selected by the focus flag.
func (d Direction) Velocity(speed, focusedSpeed float64) physics.Vec2 {
	if d.Focused() {
		return d.Unit().Scale(focusedSpeed)
	}
	return d.Unit().Scale(speed)
}

// ParseDirection resolves a direction by its String name.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, spec := range directions {
		if spec.name == s {
			return Direction(i), nil
		}
	}
	return Hold, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
