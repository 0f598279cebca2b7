// Package config loads the YAML configuration of the dodgebot binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/dodgebot/internal/core/avoidance"
	"github.com/zeusync/dodgebot/internal/core/calibration"
	"github.com/zeusync/dodgebot/internal/core/observability/log"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
	"github.com/zeusync/dodgebot/internal/sim"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Engine      EngineConfig      `yaml:"engine"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Simulation  SimulationConfig  `yaml:"simulation"`
}

type LogConfig struct {
	Level    log.Level `yaml:"level"`
	Encoding string    `yaml:"encoding"`
}

type EngineConfig struct {
	Horizon        float64                `yaml:"horizon"`
	SafetyMargin   float64                `yaml:"safety_margin"`
	ComfortMargin  float64                `yaml:"comfort_margin"`
	EvadeThreshold float64                `yaml:"evade_threshold"`
	TargetMinY     float64                `yaml:"target_min_y"`
	Arena          physics.AABB           `yaml:"arena"`
	Convention     calibration.Convention `yaml:"convention"`
	HoldPolicy     avoidance.HoldPolicy   `yaml:"hold_policy"`
	RiskWindow     int                    `yaml:"risk_window"`
}

type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	HeatMap bool   `yaml:"heatmap"`
	// Resolution is the smallest heat-map cell side.
	Resolution   float64 `yaml:"resolution"`
	HeatMaxTicks float64 `yaml:"heat_max_ticks"`
	// SendBuffer is the per-client queue length before a slow client is
	// dropped.
	SendBuffer int `yaml:"send_buffer"`
}

type SimulationConfig struct {
	Ticks int `yaml:"ticks"`
	// TickRate is in ticks per second; 0 runs as fast as possible.
	TickRate       float64       `yaml:"tick_rate"`
	ExposeVelocity bool          `yaml:"expose_velocity"`
	ScenarioFile   string        `yaml:"scenario_file"`
	Scenario       *sim.Scenario `yaml:"scenario"`
}

func Default() Config {
	p := avoidance.DefaultParams()
	return Config{
		Log: LogConfig{Level: log.LevelInfo, Encoding: "json"},
		Engine: EngineConfig{
			Horizon:        p.Horizon,
			SafetyMargin:   p.SafetyMargin,
			ComfortMargin:  p.ComfortMargin,
			EvadeThreshold: p.EvadeThreshold,
			TargetMinY:     200,
			Arena:          p.Arena,
			Convention:     calibration.RightPositive,
			HoldPolicy:     p.HoldPolicy,
			RiskWindow:     64,
		},
		Diagnostics: DiagnosticsConfig{
			Addr:         "127.0.0.1:8089",
			Resolution:   8,
			HeatMaxTicks: 100,
			SendBuffer:   64,
		},
		Simulation: SimulationConfig{
			Ticks:    3600,
			TickRate: 60,
		},
	}
}

// Load reads path on top of Default, resolves the scenario and validates
// the result. A relative scenario_file is resolved against the directory
// of path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()
	return Parse(f, filepath.Dir(path))
}

// Parse decodes YAML from r. baseDir resolves a relative scenario_file.
func Parse(r io.Reader, baseDir string) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.resolveScenario(baseDir); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveScenario(baseDir string) error {
	s := &c.Simulation
	switch {
	case s.ScenarioFile != "" && s.Scenario != nil:
		return fmt.Errorf("%w: simulation.scenario and simulation.scenario_file are exclusive", ErrInvalidConfig)
	case s.ScenarioFile != "":
		path := s.ScenarioFile
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		sc, err := sim.LoadScenario(path)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		s.Scenario = &sc
	case s.Scenario == nil:
		sc := sim.DefaultScenario()
		s.Scenario = &sc
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Encoding) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.encoding must be json or console, got %q", c.Log.Encoding))
	}

	e := c.Engine
	if e.Horizon <= 0 {
		errs = append(errs, errors.New("engine.horizon must be positive"))
	}
	if e.SafetyMargin < 0 || e.ComfortMargin < 0 || e.EvadeThreshold < 0 {
		errs = append(errs, errors.New("engine margins and evade_threshold must not be negative"))
	}
	if e.ComfortMargin < e.SafetyMargin {
		errs = append(errs, errors.New("engine.comfort_margin must not be below safety_margin"))
	}
	if e.Arena.Size.X <= 0 || e.Arena.Size.Y <= 0 {
		errs = append(errs, fmt.Errorf("engine.arena must have a positive size, got %v", e.Arena.Size))
	}
	if e.RiskWindow <= 0 {
		errs = append(errs, errors.New("engine.risk_window must be positive"))
	}

	d := c.Diagnostics
	if d.Enabled && d.Addr == "" {
		errs = append(errs, errors.New("diagnostics.addr is required when enabled"))
	}
	if d.Resolution <= 0 || d.HeatMaxTicks <= 0 || d.SendBuffer <= 0 {
		errs = append(errs, errors.New("diagnostics resolution, heat_max_ticks and send_buffer must be positive"))
	}

	s := c.Simulation
	if s.Ticks < 0 || s.TickRate < 0 {
		errs = append(errs, errors.New("simulation ticks and tick_rate must not be negative"))
	}
	if s.Scenario != nil {
		if err := s.Scenario.Validate(); err != nil {
			errs = append(errs, err)
		}
		if !e.Arena.Contains(physics.AABB{Pos: s.Scenario.Agent.Pos, Size: s.Scenario.Agent.Size}) {
			errs = append(errs, errors.New("simulation agent must start inside engine.arena"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Params converts the engine section to evaluator parameters.
func (e EngineConfig) Params() avoidance.Params {
	return avoidance.Params{
		Horizon:        e.Horizon,
		SafetyMargin:   e.SafetyMargin,
		ComfortMargin:  e.ComfortMargin,
		EvadeThreshold: e.EvadeThreshold,
		Arena:          e.Arena,
		HoldPolicy:     e.HoldPolicy,
		Eligible:       avoidance.MinDepth(e.TargetMinY),
	}
}

// Interval is the wall-clock time between ticks, 0 when unpaced.
func (s SimulationConfig) Interval() time.Duration {
	if s.TickRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.TickRate)
}

func (l LogConfig) Options() log.Options {
	return log.Options{Level: l.Level, Encoding: l.Encoding}
}
