// Package engine implements the dynamic trading loop (C9): the scheduler
// that, once per cycle, evaluates every configured station across its
// lookahead window and emits paper trades.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/calibration"
	"github.com/corwinb/skyedge/internal/adapters/registry"
	"github.com/corwinb/skyedge/internal/adapters/toggles"
	"github.com/corwinb/skyedge/internal/domain"
	"github.com/corwinb/skyedge/internal/ports"

	"github.com/google/uuid"
)

// Engine runs the sequential, single-threaded dynamic cycle.
type Engine struct {
	log *slog.Logger

	registry    *registry.Registry
	calibration *calibration.Store
	toggles     *toggles.Store

	forecast    ports.ForecastFetcher
	market      ports.MarketFetcher
	observation ports.ObservationFetcher

	ledger      ports.Ledger
	snapshotter ports.Snapshotter

	stations      []string
	interval      time.Duration
	lookaheadDays int

	sizing        domain.SizingConfig
	modelMode     domain.ModelMode
	dailyBankroll float64
}

// Config bundles the Engine's tunables, kept separate from its
// collaborators so tests can construct an Engine without a full Services.
type Config struct {
	Stations      []string
	Interval      time.Duration
	LookaheadDays int
	Sizing        domain.SizingConfig
	ModelMode     domain.ModelMode
	DailyBankroll float64
}

// New builds an Engine from its collaborators and tunables.
func New(
	log *slog.Logger,
	reg *registry.Registry,
	cal *calibration.Store,
	tog *toggles.Store,
	forecast ports.ForecastFetcher,
	market ports.MarketFetcher,
	observation ports.ObservationFetcher,
	ledger ports.Ledger,
	snapshotter ports.Snapshotter,
	cfg Config,
) *Engine {
	return &Engine{
		log:           log,
		registry:      reg,
		calibration:   cal,
		toggles:       tog,
		forecast:      forecast,
		market:        market,
		observation:   observation,
		ledger:        ledger,
		snapshotter:   snapshotter,
		stations:      cfg.Stations,
		interval:      cfg.Interval,
		lookaheadDays: cfg.LookaheadDays,
		sizing:        cfg.Sizing,
		modelMode:     cfg.ModelMode,
		dailyBankroll: cfg.DailyBankroll,
	}
}

// Run loops cycles until ctx is cancelled, sleeping a fixed cadence
// measured from each cycle's own start rather than from when it finished —
// a long cycle shortens, never skips, the following sleep.
func (e *Engine) Run(ctx context.Context) error {
	for {
		cycleStart := time.Now().UTC()
		e.RunCycle(ctx, cycleStart)

		if ctx.Err() != nil {
			return nil
		}

		sleepUntil := cycleStart.Add(e.interval)
		wait := time.Until(sleepUntil)
		if wait <= 0 {
			continue
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

// RunCycle evaluates every station x lookahead day once, sequentially.
// A failure on one (station, day) is logged and does not prevent the rest
// of the cycle from running.
func (e *Engine) RunCycle(ctx context.Context, cycleTime time.Time) {
	e.log.Info("cycle starting", "cycle_time", cycleTime, "stations", len(e.stations), "lookahead_days", e.lookaheadDays)

	for _, code := range e.stations {
		station, ok := e.registry.ByCode(code)
		if !ok {
			e.log.Warn("cycle: unknown station, skipping", "station_code", code)
			continue
		}

		for d := 0; d < e.lookaheadDays; d++ {
			if ctx.Err() != nil {
				return
			}
			eventDay := cycleTime.AddDate(0, 0, d)
			if err := e.runStationDay(ctx, station, eventDay, cycleTime); err != nil {
				e.log.Warn("cycle: station/day failed", "station_code", station.StationCode, "event_day", eventDay.Format("2006-01-02"), "err", err)
			}
		}
	}

	e.log.Info("cycle complete", "cycle_time", cycleTime)
}

func (e *Engine) runStationDay(ctx context.Context, station domain.Station, eventDay, cycleTime time.Time) error {
	open, err := e.market.HaveOpenMarkets(ctx, station.City, eventDay)
	if err != nil {
		return fmt.Errorf("have open markets: %w", err)
	}
	if !open {
		return nil
	}

	forecast, err := e.forecast.FetchForecast(ctx, station, eventDay)
	if err != nil {
		return fmt.Errorf("fetch forecast: %w", err)
	}
	forecast = e.calibration.Apply(e.toggles.Current().StationCalibration, forecast, localMonthHourFunc(station, forecast))

	brackets, prices, err := e.market.FetchMarket(ctx, station.City, eventDay)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}

	var quotes []domain.BracketQuote
	for i, b := range brackets {
		var p *float64
		if i < len(prices) {
			p = prices[i]
		}
		quotes = append(quotes, domain.BracketQuote{Bracket: b, Price: p})
	}
	if err := e.snapshotter.SaveMarket(station.City, eventDay, cycleTime, quotes); err != nil {
		e.log.Warn("snapshot market failed", "err", err)
	}
	if err := e.snapshotter.SaveForecast(station.StationCode, eventDay, cycleTime, forecast); err != nil {
		e.log.Warn("snapshot forecast failed", "err", err)
	}

	isToday := eventDay.UTC().Format("2006-01-02") == cycleTime.UTC().Format("2006-01-02")
	if isToday {
		obs, err := e.observation.FetchObservations(ctx, station, eventDay)
		if err != nil {
			e.log.Warn("fetch observations failed", "err", err)
		}
		for _, o := range obs {
			if err := e.snapshotter.SaveObservation(station.StationCode, eventDay, o); err != nil {
				e.log.Warn("snapshot observation failed", "err", err)
			}
		}
	}

	if len(brackets) == 0 {
		return nil
	}

	probs, err := domain.MapDailyHigh(forecast, brackets, e.modelMode)
	if err != nil {
		return fmt.Errorf("map daily high: %w", err)
	}
	mergePrices(probs, quotes)

	depth, err := e.market.FetchDepth(ctx, marketIDs(brackets))
	if err != nil {
		e.log.Warn("fetch depth failed", "err", err)
		depth = nil
	}

	decisions := domain.Decide(probs, e.dailyBankroll, e.sizing, depth, cycleTime)

	if err := e.snapshotter.SaveDecisions(station.StationCode, eventDay, cycleTime, decisions); err != nil {
		e.log.Warn("snapshot decisions failed", "err", err)
	}

	if len(decisions) == 0 {
		return nil
	}

	rows := make([]domain.TradeRecord, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, domain.NewTradeRecord(uuid.NewString(), station.StationCode, d))
	}
	if err := e.ledger.Append(eventDay, rows); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

func mergePrices(probs []domain.BracketProb, quotes []domain.BracketQuote) {
	byMarket := make(map[string]*float64, len(quotes))
	for _, q := range quotes {
		if q.Price != nil {
			p := *q.Price
			byMarket[q.Bracket.MarketID] = &p
		}
	}
	for i := range probs {
		if p, ok := byMarket[probs[i].Bracket.MarketID]; ok {
			probs[i].PMkt = p
		}
	}
}

func marketIDs(brackets []domain.Bracket) []string {
	ids := make([]string, 0, len(brackets))
	for _, b := range brackets {
		if b.MarketID != "" {
			ids = append(ids, b.MarketID)
		}
	}
	return ids
}

// localMonthHourFunc returns a per-point (month, hour) resolver in the
// station's local zone for calibration lookup; falls back to UTC month/hour
// if the station's zone cannot be loaded (calibration then degrades to a
// best-effort correction rather than aborting the cycle).
func localMonthHourFunc(station domain.Station, f domain.Forecast) func(i int) (month, hour int) {
	zone, err := domain.LoadZone(station.TimeZone)
	if err != nil {
		zone = time.UTC
	}
	return func(i int) (int, int) {
		if i >= len(f.Points) {
			return 1, 0
		}
		t := f.Points[i].TimeUTC.In(zone)
		return int(t.Month()), t.Hour()
	}
}
