package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/corwinb/skyedge/internal/application/engine"
	"github.com/corwinb/skyedge/internal/application/services"
	"github.com/corwinb/skyedge/internal/domain"
)

func buildEngine(svc *services.Services) *engine.Engine {
	return engine.New(
		svc.Log,
		svc.Registry,
		svc.Calibration,
		svc.Toggles,
		svc.Forecast,
		svc.Market,
		svc.Observation,
		svc.Ledger,
		svc.Snapshotter,
		engine.Config{
			Stations:      svc.Config.Trading.ActiveStations,
			Interval:      svc.Config.DynamicInterval(),
			LookaheadDays: svc.Config.DynamicLookaheadDays,
			Sizing:        svc.SizingConfig(),
			ModelMode:     domain.ModelMode(svc.Config.ModelMode),
			DailyBankroll: svc.DailyBankroll(),
		},
	)
}

func cmdCycle(args []string) error {
	fs := flag.NewFlagSet("cycle", flag.ExitOnError)
	configPath := fs.String("config", "config/config.local.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := buildServices(*configPath)
	if err != nil {
		return err
	}
	defer svc.MetricsDB.Close()

	e := buildEngine(svc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	e.RunCycle(ctx, time.Now().UTC())
	svc.Log.Info("cycle command complete")
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config/config.local.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := buildServices(*configPath)
	if err != nil {
		return err
	}
	defer svc.MetricsDB.Close()

	e := buildEngine(svc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc.Log.Info("tradingctl run starting", "interval", svc.Config.DynamicInterval())
	if err := e.Run(ctx); err != nil {
		return err
	}
	svc.Log.Info("tradingctl run stopped cleanly")
	return nil
}
