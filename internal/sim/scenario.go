package sim

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/dodgebot/internal/core/avoidance"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

var ErrInvalidScenario = errors.New("sim: invalid scenario")

// Scenario describes the starting arena and everything that appears in it
// over time. All times are in ticks.
type Scenario struct {
	Name  string    `yaml:"name"`
	Agent AgentSpec `yaml:"agent"`
	// BombCooldown is the minimum number of ticks between two bombs.
	BombCooldown int `yaml:"bomb_cooldown"`
	// Respawn is how long the agent stays disabled after a hit.
	Respawn  int           `yaml:"respawn"`
	Hazards  []ObjectSpec  `yaml:"hazards"`
	Targets  []ObjectSpec  `yaml:"targets"`
	Spawners []SpawnerSpec `yaml:"spawners"`
	Drops    []DropSpec    `yaml:"drops"`
}

type AgentSpec struct {
	Pos          physics.Vec2 `yaml:"pos"`
	Size         physics.Vec2 `yaml:"size"`
	Speed        float64      `yaml:"speed"`
	FocusedSpeed float64      `yaml:"focused_speed"`
}

// ObjectSpec is a single hazard or target. Exactly one of Box, Circle and
// Beam must be set.
type ObjectSpec struct {
	// Kind is bullet, beam or enemy for hazards; ignored for targets.
	Kind     string          `yaml:"kind"`
	Box      *physics.AABB   `yaml:"box"`
	Circle   *physics.Circle `yaml:"circle"`
	Beam     *BeamSpec       `yaml:"beam"`
	Velocity physics.Vec2    `yaml:"velocity"`
	Meta     int             `yaml:"meta"`
}

type BeamSpec struct {
	From  physics.Vec2 `yaml:"from"`
	To    physics.Vec2 `yaml:"to"`
	Width float64      `yaml:"width"`
}

// SpawnerSpec fires a ring of Count round bullets every Every ticks,
// starting at Start. Each volley is rotated by Spin radians.
type SpawnerSpec struct {
	Pos    physics.Vec2 `yaml:"pos"`
	Start  int          `yaml:"start"`
	Every  int          `yaml:"every"`
	Count  int          `yaml:"count"`
	Speed  float64      `yaml:"speed"`
	Radius float64      `yaml:"radius"`
	Spin   float64      `yaml:"spin"`
}

// DropSpec releases a square collectible every Every ticks, cycling
// through Xs at height Y.
type DropSpec struct {
	Start    int          `yaml:"start"`
	Every    int          `yaml:"every"`
	Y        float64      `yaml:"y"`
	Xs       []float64    `yaml:"xs"`
	Size     float64      `yaml:"size"`
	Velocity physics.Vec2 `yaml:"velocity"`
	Meta     int          `yaml:"meta"`
}

// DefaultScenario is an empty arena with a 4x4 agent near the bottom.
func DefaultScenario() Scenario {
	return Scenario{
		Name: "empty",
		Agent: AgentSpec{
			Pos:          physics.V(190, 400),
			Size:         physics.V(4, 4),
			Speed:        4.5,
			FocusedSpeed: 2,
		},
		BombCooldown: 120,
		Respawn:      30,
	}
}

// LoadScenario reads a YAML scenario on top of DefaultScenario.
func LoadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("sim: open scenario: %w", err)
	}
	defer f.Close()
	return ParseScenario(f)
}

func ParseScenario(r io.Reader) (Scenario, error) {
	fields := scenarioFields(DefaultScenario())
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		return Scenario{}, fmt.Errorf("sim: decode scenario: %w", err)
	}
	sc := Scenario(fields)
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// scenarioFields has Scenario's layout without its UnmarshalYAML method.
type scenarioFields Scenario

// UnmarshalYAML fills keys missing from an embedded scenario with the
// DefaultScenario values.
func (s *Scenario) UnmarshalYAML(n *yaml.Node) error {
	fields := scenarioFields(DefaultScenario())
	if err := n.Decode(&fields); err != nil {
		return err
	}
	*s = Scenario(fields)
	return nil
}

func (s Scenario) Validate() error {
	var errs []error
	if s.Agent.Size.X <= 0 || s.Agent.Size.Y <= 0 {
		errs = append(errs, fmt.Errorf("agent size must be positive, got %v", s.Agent.Size))
	}
	if s.Agent.Speed <= 0 || s.Agent.FocusedSpeed <= 0 {
		errs = append(errs, errors.New("agent speeds must be positive"))
	}
	if s.BombCooldown < 0 || s.Respawn < 0 {
		errs = append(errs, errors.New("bomb_cooldown and respawn must not be negative"))
	}
	for i, o := range s.Hazards {
		if _, err := hazardKind(o.Kind); err != nil {
			errs = append(errs, fmt.Errorf("hazards[%d]: %w", i, err))
		}
		if _, err := o.shape(); err != nil {
			errs = append(errs, fmt.Errorf("hazards[%d]: %w", i, err))
		}
	}
	for i, o := range s.Targets {
		if _, err := o.shape(); err != nil {
			errs = append(errs, fmt.Errorf("targets[%d]: %w", i, err))
		}
	}
	for i, sp := range s.Spawners {
		if sp.Every <= 0 || sp.Count <= 0 || sp.Radius <= 0 {
			errs = append(errs, fmt.Errorf("spawners[%d]: every, count and radius must be positive", i))
		}
	}
	for i, d := range s.Drops {
		if d.Every <= 0 || d.Size <= 0 || len(d.Xs) == 0 {
			errs = append(errs, fmt.Errorf("drops[%d]: every and size must be positive and xs non-empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(errs...))
	}
	return nil
}

func (o ObjectSpec) shape() (physics.Shape, error) {
	var shapes []physics.Shape
	if o.Box != nil {
		shapes = append(shapes, *o.Box)
	}
	if o.Circle != nil {
		shapes = append(shapes, *o.Circle)
	}
	if o.Beam != nil {
		shapes = append(shapes, physics.Segment(o.Beam.From, o.Beam.To, o.Beam.Width))
	}
	if len(shapes) != 1 {
		return nil, fmt.Errorf("exactly one of box, circle, beam required, got %d", len(shapes))
	}
	return shapes[0], nil
}

func hazardKind(s string) (avoidance.HazardKind, error) {
	switch s {
	case "bullet", "":
		return avoidance.Bullet, nil
	case "beam":
		return avoidance.Beam, nil
	case "enemy":
		return avoidance.Enemy, nil
	}
	return 0, fmt.Errorf("unknown hazard kind %q", s)
}
