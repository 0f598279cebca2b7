package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/dodgebot/internal/config"
	"github.com/zeusync/dodgebot/internal/core/observability/log"
	"github.com/zeusync/dodgebot/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration (defaults when empty)")
	ticks := flag.Int("ticks", -1, "number of ticks to simulate, overrides simulation.ticks (0 = until interrupted)")
	flag.Parse()

	if err := run(*configPath, *ticks); err != nil {
		fmt.Fprintln(os.Stderr, "dodgebot:", err)
		os.Exit(1)
	}
}

func run(configPath string, ticks int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if ticks >= 0 {
		cfg.Simulation.Ticks = ticks
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	runID := uuid.NewString()
	logger := app.Logger.With(log.String("run", runID))
	logger.Info("starting",
		log.String("scenario", cfg.Simulation.Scenario.Name),
		log.Int("ticks", cfg.Simulation.Ticks),
		log.Float64("tick_rate", cfg.Simulation.TickRate),
		log.Bool("diagnostics", app.Server != nil),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopCh)
	go func() {
		select {
		case sig := <-stopCh:
			logger.Info("signal received", log.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The simulation finishing ends the run, diagnostics included.
		defer cancel()
		return app.Bot.Run(gctx, cfg.Simulation.Ticks, cfg.Simulation.Interval())
	})
	if app.Server != nil {
		g.Go(func() error { return app.Server.Run(gctx) })
	}
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	simStats, botStats := app.Sim.Stats(), app.Bot.Stats()
	calib := app.Bot.Calibration()
	logger.Info("finished",
		log.Duration("elapsed", time.Since(started)),
		log.Uint64("ticks", simStats.Ticks),
		log.Int("hits", simStats.Hits),
		log.Int("pickups", simStats.Pickups),
		log.Int("bombs", simStats.Bombs),
		log.Uint64("pursuits", botStats.Pursuits),
		log.Uint64("evades", botStats.Evades),
		log.Uint64("errors", botStats.Errors),
		log.Bool("calibrated", calib.Calibrated),
		log.Float64("speed", calib.Speed),
		log.Float64("focused_speed", calib.FocusedSpeed),
		log.Float64("tightest", app.Bot.Risk().Min()),
	)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse(strings.NewReader(""), "")
	}
	return config.Load(path)
}
