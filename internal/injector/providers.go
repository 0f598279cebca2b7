package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/dodgebot/internal/config"
	"github.com/zeusync/dodgebot/internal/core/avoidance"
	"github.com/zeusync/dodgebot/internal/core/bot"
	"github.com/zeusync/dodgebot/internal/core/calibration"
	"github.com/zeusync/dodgebot/internal/core/events/bus"
	"github.com/zeusync/dodgebot/internal/core/heatmap"
	"github.com/zeusync/dodgebot/internal/core/observability/log"
	"github.com/zeusync/dodgebot/internal/server"
	"github.com/zeusync/dodgebot/internal/sim"
)

// App is the fully wired program. Server is nil when diagnostics are
// disabled; Heat is nil unless the heat map is enabled too.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Events bus.EventBus
	Sim    *sim.Sim
	Bot    *bot.Bot
	Server *server.Server
	Heat   *heatmap.Publisher
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideEventBus,
	ProvideSim,
	ProvideCalibrator,
	ProvideEvaluator,
	ProvideBot,
	ProvideServer,
	ProvideHeatMap,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	l, err := log.New(cfg.Log.Options())
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideSim(cfg *config.Config, events bus.EventBus) *sim.Sim {
	return sim.New(*cfg.Simulation.Scenario, cfg.Engine.Arena,
		sim.WithEvents(events),
		sim.WithExposedVelocity(cfg.Simulation.ExposeVelocity),
	)
}

func ProvideCalibrator(cfg *config.Config) *calibration.Calibrator {
	return calibration.New(cfg.Engine.Convention)
}

func ProvideEvaluator(cfg *config.Config) *avoidance.Evaluator {
	return avoidance.NewEvaluator(cfg.Engine.Params())
}

// ProvideBot drives the simulator, which is both the state feed and the
// actuator.
func ProvideBot(cfg *config.Config, world *sim.Sim, calib *calibration.Calibrator, eval *avoidance.Evaluator, events bus.EventBus, logger *log.Logger) *bot.Bot {
	opts := []bot.Option{
		bot.WithEvents(events),
		bot.WithLogger(logger),
		bot.WithRiskWindow(cfg.Engine.RiskWindow),
	}
	return bot.New(world, world, calib, eval, opts...)
}

func ProvideServer(cfg *config.Config, events bus.EventBus, logger *log.Logger) (*server.Server, func(), error) {
	d := cfg.Diagnostics
	if !d.Enabled {
		return nil, func() {}, nil
	}
	srv, err := server.New(server.Config{Addr: d.Addr, SendBuffer: d.SendBuffer}, events, logger)
	if err != nil {
		return nil, nil, err
	}
	return srv, srv.Close, nil
}

// ProvideHeatMap publishes heat-map frames for every tick event when
// diagnostics and the heat map are both enabled.
func ProvideHeatMap(cfg *config.Config, events bus.EventBus) (*heatmap.Publisher, func(), error) {
	d := cfg.Diagnostics
	if !d.Enabled || !d.HeatMap {
		return nil, func() {}, nil
	}
	p, err := heatmap.NewPublisher(events, heatmap.New(cfg.Engine.Horizon, d.Resolution, d.HeatMaxTicks), cfg.Engine.Arena)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
