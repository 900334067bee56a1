// Package services assembles every collaborator the application layer
// needs into one struct built once at process start (C19). Nothing here
// is a package-level mutable global: every caller takes its collaborators
// through this struct or a narrower interface extracted from it.
package services

import (
	"log/slog"

	"github.com/corwinb/skyedge/internal/adapters/calibration"
	"github.com/corwinb/skyedge/internal/adapters/changelog"
	"github.com/corwinb/skyedge/internal/adapters/registry"
	"github.com/corwinb/skyedge/internal/adapters/storage"
	"github.com/corwinb/skyedge/internal/adapters/toggles"
	"github.com/corwinb/skyedge/internal/domain"
	"github.com/corwinb/skyedge/internal/ports"

	appconfig "github.com/corwinb/skyedge/config"
)

// Services holds every wired collaborator the CLI entrypoints (C20) need.
type Services struct {
	Config *appconfig.Config
	Log    *slog.Logger

	Registry    *registry.Registry
	Calibration *calibration.Store
	Toggles     *toggles.Store
	Changelog   *changelog.Store
	MetricsDB   *storage.Cache

	Forecast    ports.ForecastFetcher
	Market      ports.MarketFetcher
	Observation ports.ObservationFetcher
	Resolver    ports.Resolver

	Ledger      ports.Ledger
	Snapshotter ports.Snapshotter
}

// SizingConfig builds a domain.SizingConfig from the loaded trading
// configuration. Threaded explicitly into each Decide call rather than
// read from a package global.
func (s *Services) SizingConfig() domain.SizingConfig {
	t := s.Config.Trading
	return domain.SizingConfig{
		EdgeMin:      t.EdgeMin,
		FeeBP:        t.FeeBP,
		SlippageBP:   t.SlippageBP,
		KellyCap:     t.KellyCap,
		PerMarketCap: t.PerMarketCap,
		LiquidityMin: t.LiquidityMinUSD,
	}
}

// ModelMode returns the configured probability model mode as a plain value
// — never mutated mid-call, only ever read and passed down.
func (s *Services) ModelMode() domain.ModelMode {
	return domain.ModelMode(s.Config.ModelMode)
}

// DailyBankroll returns the configured daily bankroll cap, the base the
// sizer's Kelly fraction is applied against.
func (s *Services) DailyBankroll() float64 {
	return s.Config.Trading.DailyBankrollCap
}
