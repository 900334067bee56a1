// Command tradingctl is the single entrypoint for the dynamic trading
// engine, its backtester, the resolution pass, and the reporting tool
// (C20). Every subcommand assembles its own Services context and exits;
// there is no shared mutable state between invocations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/corwinb/skyedge/config"
	"github.com/corwinb/skyedge/internal/adapters/calibration"
	"github.com/corwinb/skyedge/internal/adapters/changelog"
	"github.com/corwinb/skyedge/internal/adapters/forecastapi"
	"github.com/corwinb/skyedge/internal/adapters/ledger"
	"github.com/corwinb/skyedge/internal/adapters/obsapi"
	"github.com/corwinb/skyedge/internal/adapters/registry"
	"github.com/corwinb/skyedge/internal/adapters/snapshot"
	"github.com/corwinb/skyedge/internal/adapters/storage"
	"github.com/corwinb/skyedge/internal/adapters/toggles"
	"github.com/corwinb/skyedge/internal/adapters/venueapi"
	"github.com/corwinb/skyedge/internal/application/services"
)

func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// buildServices loads configPath and wires every collaborator the CLI
// subcommands need into one Services context.
func buildServices(configPath string) (*services.Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := setupLogger(cfg.LogLevel, cfg.LogFormat)

	dataDir := cfg.Storage.DataDir

	reg, err := registry.Load(filepath.Join(dataDir, "registry", "stations.csv"), log)
	if err != nil {
		return nil, fmt.Errorf("load station registry: %w", err)
	}

	cal, err := calibration.Load(filepath.Join(dataDir, "calibration"), log)
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}

	tog, err := toggles.Load(filepath.Join(dataDir, "config", "feature_toggles.json"), log)
	if err != nil {
		return nil, fmt.Errorf("load feature toggles: %w", err)
	}

	chg, err := changelog.Open(filepath.Join(dataDir, "strategy", "changelog.json"))
	if err != nil {
		return nil, fmt.Errorf("open changelog: %w", err)
	}

	cache, err := storage.Open(cfg.Storage.MetricsDSN)
	if err != nil {
		return nil, fmt.Errorf("open metrics cache: %w", err)
	}

	led, err := ledger.New(filepath.Join(dataDir, "trades"))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	snap, err := snapshot.New(filepath.Join(dataDir, "snapshots", "dynamic"))
	if err != nil {
		return nil, fmt.Errorf("open snapshotter: %w", err)
	}

	forecast := forecastapi.New(cfg.Forecast.APIBase, cfg.Forecast.APIKey, 2, 4)
	venue := venueapi.New(cfg.Venue.GammaBase, cfg.Venue.CLOBBase)
	obs := obsapi.New(cfg.Observation.APIBase)

	return &services.Services{
		Config: cfg,
		Log:    log,

		Registry:    reg,
		Calibration: cal,
		Toggles:     tog,
		Changelog:   chg,
		MetricsDB:   cache,

		Forecast:    forecast,
		Market:      venue,
		Observation: obs,
		Resolver:    venue,

		Ledger:      led,
		Snapshotter: snap,
	}, nil
}
