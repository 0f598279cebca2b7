// Package bot runs the per-tick decision loop: read a snapshot, calibrate
// movement speeds on the first ticks, then evaluate every direction and
// drive the actuator with the chosen input.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zeusync/dodgebot/internal/core/avoidance"
	"github.com/zeusync/dodgebot/internal/core/calibration"
	"github.com/zeusync/dodgebot/internal/core/control"
	"github.com/zeusync/dodgebot/internal/core/events/bus"
	"github.com/zeusync/dodgebot/internal/core/observability/log"
	"github.com/zeusync/dodgebot/internal/core/systems/physics"
)

// ErrNoAgent is returned when an enabled agent has no shape.
var ErrNoAgent = errors.New("bot: snapshot has no agent shape")

const source = "bot"

// StateFeed supplies one snapshot per tick.
type StateFeed interface {
	Snapshot(ctx context.Context) (avoidance.Snapshot, error)
}

// StateFeedFunc adapts a function to StateFeed.
type StateFeedFunc func(ctx context.Context) (avoidance.Snapshot, error)

func (f StateFeedFunc) Snapshot(ctx context.Context) (avoidance.Snapshot, error) { return f(ctx) }

// Phase tells which branch a tick took.
type Phase uint8

const (
	// PhaseDisabled: the agent is disabled or absent, or the feed failed.
	// Input is neutral.
	PhaseDisabled Phase = iota
	PhaseCalibrating
	PhaseEvaluating
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "disabled"
	case PhaseCalibrating:
		return "calibrating"
	case PhaseEvaluating:
		return "evaluating"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// TickInfo is the payload of bus.TypeTick events.
type TickInfo struct {
	Tick         uint64         `json:"tick"`
	Digest       uint64         `json:"digest"`
	Direction    string         `json:"direction"`
	Pursuing     bool           `json:"pursuing"`
	EvadeNow     bool           `json:"evade_now"`
	Threatened   bool           `json:"threatened"`
	MinCollision float64        `json:"min_collision"`
	Hazards      int            `json:"hazards"`
	Targets      int            `json:"targets"`
	// HazardTimes is each hazard's time to reach the agent holding still,
	// -1 for never.
	HazardTimes  []float64      `json:"hazard_times"`
	// HazardBodies feeds in-process subscribers such as the heat map.
	HazardBodies []physics.Body `json:"-"`
}

// CalibratedInfo is the payload of bus.TypeCalibrated events.
type CalibratedInfo struct {
	Tick         uint64  `json:"tick"`
	Convention   string  `json:"convention"`
	Speed        float64 `json:"speed"`
	FocusedSpeed float64 `json:"focused_speed"`
}

// Result describes one completed tick.
type Result struct {
	Tick     uint64
	Phase    Phase
	Input    control.InputState
	Decision *avoidance.Decision
	Digest   uint64
}

// Stats are cumulative counters.
type Stats struct {
	Ticks     uint64
	Evaluated uint64
	Pursuits  uint64
	Evades    uint64
	Errors    uint64
}

type Bot struct {
	feed   StateFeed
	act    control.Actuator
	calib  *calibration.Calibrator
	eval   *avoidance.Evaluator
	events bus.EventBus
	logger log.Log
	risk   *RiskHistory

	mu    sync.Mutex
	stats Stats
}

type Option func(*Bot)

// WithEvents publishes tick and calibration events on b.
func WithEvents(b bus.EventBus) Option { return func(bt *Bot) { bt.events = b } }

func WithLogger(l log.Log) Option { return func(bt *Bot) { bt.logger = l } }

func WithRiskWindow(n int) Option { return func(bt *Bot) { bt.risk = NewRiskHistory(n) } }

func New(feed StateFeed, act control.Actuator, calib *calibration.Calibrator, eval *avoidance.Evaluator, opts ...Option) *Bot {
	b := &Bot{
		feed:   feed,
		act:    act,
		calib:  calib,
		eval:   eval,
		logger: log.NewNop(),
		risk:   NewRiskHistory(DefaultRiskWindow),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(log.String("component", source))
	return b
}

func (b *Bot) Calibration() calibration.State { return b.calib.State() }
func (b *Bot) Risk() *RiskHistory             { return b.risk }

func (b *Bot) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Tick runs one iteration of the decision loop.
func (b *Bot) Tick(ctx context.Context) (Result, error) {
	res, err := b.tick(ctx)
	b.mu.Lock()
	b.stats.Ticks++
	if err != nil {
		b.stats.Errors++
	}
	if res.Decision != nil {
		b.stats.Evaluated++
		if res.Decision.Pursuing {
			b.stats.Pursuits++
		}
		if res.Decision.EvadeNow {
			b.stats.Evades++
		}
	}
	b.mu.Unlock()
	if err != nil {
		b.logger.Warn("tick failed", log.Uint64("tick", res.Tick), log.Error(err))
	}
	return res, err
}

func (b *Bot) tick(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s, err := b.feed.Snapshot(ctx)
	if err != nil {
		return b.neutral(Result{}, fmt.Errorf("bot: read state: %w", err))
	}
	res := Result{Tick: s.Tick}

	if !s.AgentEnabled {
		return b.neutral(res, nil)
	}
	if s.Agent.Shape == nil {
		return b.neutral(res, ErrNoAgent)
	}

	if !b.calib.Calibrated() {
		res.Phase = PhaseCalibrating
		in, done := b.calib.Tick(s.Agent.Shape.Center().X)
		res.Input = in
		if err := b.apply(in); err != nil {
			return res, err
		}
		if done {
			b.calibrated(s.Tick)
		}
		return res, nil
	}

	res.Phase = PhaseEvaluating
	speed, focused := b.calib.Speeds()
	d := b.eval.Evaluate(s, speed, focused)
	res.Decision = &d
	res.Input = d.Input()
	res.Digest = s.Digest()
	if err := b.apply(res.Input); err != nil {
		return res, err
	}

	best := d.Collision.Max(control.Directions()...)
	b.risk.Push(d.Collision[d.Direction])
	b.logger.Debug("decision",
		log.Uint64("tick", s.Tick),
		log.Uint64("digest", res.Digest),
		log.Stringer("direction", d.Direction),
		log.Bool("pursuing", d.Pursuing),
		log.Bool("evade_now", d.EvadeNow),
		log.Float64("collision", finite(d.Collision[d.Direction])),
		log.Float64("best", finite(best)),
	)
	if b.events != nil {
		b.publish(bus.TypeTick, tickInfo(s, d, res.Digest))
	}
	return res, nil
}

// neutral releases every signal for a tick that cannot be evaluated, so
// nothing pressed on an earlier tick stays held.
func (b *Bot) neutral(res Result, cause error) (Result, error) {
	res.Phase = PhaseDisabled
	res.Input = control.Neutral()
	return res, errors.Join(cause, b.apply(res.Input))
}

func (b *Bot) calibrated(tick uint64) {
	speed, focused := b.calib.Speeds()
	conv := b.calib.Convention().String()
	b.logger.Info("calibrated",
		log.String("convention", conv),
		log.Float64("speed", speed),
		log.Float64("focused_speed", focused),
	)
	if speed <= 0 || focused <= 0 {
		b.logger.Warn("non-positive calibrated speed, check the coordinate convention",
			log.Float64("speed", speed), log.Float64("focused_speed", focused))
	}
	b.publish(bus.TypeCalibrated, CalibratedInfo{Tick: tick, Convention: conv, Speed: speed, FocusedSpeed: focused})
}

func tickInfo(s avoidance.Snapshot, d avoidance.Decision, digest uint64) TickInfo {
	info := TickInfo{
		Tick:         s.Tick,
		Digest:       digest,
		Direction:    d.Direction.String(),
		Pursuing:     d.Pursuing,
		EvadeNow:     d.EvadeNow,
		Threatened:   d.Threatened,
		MinCollision: finite(d.Collision[d.Direction]),
		Hazards:      len(s.Hazards),
		Targets:      len(s.Targets),
	}
	info.HazardTimes = make([]float64, len(d.HazardTimes))
	for i, t := range d.HazardTimes {
		info.HazardTimes[i] = finite(t)
	}
	info.HazardBodies = make([]physics.Body, len(s.Hazards))
	for i, h := range s.Hazards {
		info.HazardBodies[i] = h.Body
	}
	return info
}

func (b *Bot) apply(in control.InputState) error {
	if err := b.act.Apply(in); err != nil {
		return fmt.Errorf("bot: apply input %s: %w", in.Keys, err)
	}
	return nil
}

func (b *Bot) publish(typ string, data any) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(bus.NewEvent(typ, source, data)); err != nil {
		b.logger.Warn("publish failed", log.String("type", typ), log.Error(err))
	}
}

// Run ticks until n ticks have run (n <= 0 means no limit) or ctx is
// done. A positive interval paces ticks with a ticker. Tick errors are
// logged and counted but do not stop the loop.
func (b *Bot) Run(ctx context.Context, n int, interval time.Duration) error {
	var pace <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}
	for i := 0; n <= 0 || i < n; i++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}
		if _, err := b.Tick(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// finite maps the no-collision sentinel to -1 so it survives JSON.
func finite(t float64) float64 {
	if math.IsInf(t, 0) || math.IsNaN(t) {
		return -1
	}
	return t
}
