// Package backtest implements the replay engine (C10): re-running the
// live cycle's decision logic over a historical date range using whatever
// price evidence is available for each day, then scoring against actual
// outcomes via the resolution engine.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/calibration"
	"github.com/corwinb/skyedge/internal/adapters/registry"
	"github.com/corwinb/skyedge/internal/adapters/toggles"
	"github.com/corwinb/skyedge/internal/application/resolution"
	"github.com/corwinb/skyedge/internal/domain"
	"github.com/corwinb/skyedge/internal/ports"

	"github.com/google/uuid"
)

// Runner replays the cycle over a date range.
type Runner struct {
	log *slog.Logger

	registry    *registry.Registry
	calibration *calibration.Store
	toggles     *toggles.Store

	forecast     ports.ForecastFetcher
	market       ports.MarketFetcher
	history      ports.PriceHistoryFetcher      // optional; nil disables the history fallback
	snapshots    ports.SnapshotReader           // optional; nil disables the saved-snapshot price tier
	forecastSnap ports.ForecastSnapshotReader   // optional; nil always falls through to a live forecast fetch

	resolver *resolution.Engine

	sizing    domain.SizingConfig
	modelMode domain.ModelMode
}

// New builds a Runner.
func New(
	log *slog.Logger,
	reg *registry.Registry,
	cal *calibration.Store,
	tog *toggles.Store,
	forecast ports.ForecastFetcher,
	market ports.MarketFetcher,
	history ports.PriceHistoryFetcher,
	snapshots ports.SnapshotReader,
	forecastSnap ports.ForecastSnapshotReader,
	resolver *resolution.Engine,
	sizing domain.SizingConfig,
	modelMode domain.ModelMode,
) *Runner {
	return &Runner{
		log:          log,
		registry:     reg,
		calibration:  cal,
		toggles:      tog,
		forecast:     forecast,
		market:       market,
		history:      history,
		snapshots:    snapshots,
		forecastSnap: forecastSnap,
		resolver:     resolver,
		sizing:       sizing,
		modelMode:    modelMode,
	}
}

// DayResult is one (station, day)'s worth of backtested trades.
type DayResult struct {
	Station          string
	EventDay         time.Time
	Trades           []domain.TradeRecord
	ResolutionOnly   bool
}

// Run replays [start, end] for every station, returning one DayResult per
// (station, day). A failure on one (station, day) is logged and excluded
// from the results rather than aborting the whole range.
func (r *Runner) Run(ctx context.Context, stationCodes []string, start, end time.Time, bankrollUSD float64) []DayResult {
	var results []DayResult

	for _, code := range stationCodes {
		station, ok := r.registry.ByCode(code)
		if !ok {
			r.log.Warn("backtest: unknown station, skipping", "station_code", code)
			continue
		}

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if ctx.Err() != nil {
				return results
			}
			res, err := r.runDay(ctx, station, day, bankrollUSD)
			if err != nil {
				r.log.Warn("backtest: day failed", "station_code", code, "day", day.Format("2006-01-02"), "err", err)
				continue
			}
			results = append(results, res)
		}
	}

	return results
}

func (r *Runner) runDay(ctx context.Context, station domain.Station, day time.Time, bankrollUSD float64) (DayResult, error) {
	forecast, err := r.loadForecast(ctx, station, day)
	if err != nil {
		return DayResult{}, fmt.Errorf("fetch forecast: %w", err)
	}
	forecast = r.calibration.Apply(r.toggles.Current().StationCalibration, forecast, monthHourFunc(station, forecast))

	brackets, prices, err := r.market.FetchMarket(ctx, station.City, day)
	if err != nil {
		return DayResult{}, fmt.Errorf("fetch market: %w", err)
	}
	if len(brackets) == 0 {
		return DayResult{Station: station.StationCode, EventDay: day}, nil
	}

	probs, err := domain.MapDailyHigh(forecast, brackets, r.modelMode)
	if err != nil {
		return DayResult{}, fmt.Errorf("map daily high: %w", err)
	}

	snapByMarket := r.loadSnapshotPrices(station.City, day)

	// Price priority, highest first: saved snapshot for this day (reflects
	// what was actually observable at decision time) > historical
	// price-history endpoint for a closed market > today's live mid-price,
	// which for a past day is a last-resort stand-in, not a real
	// historical read > none.
	havePrice := false
	for i := range probs {
		marketID := brackets[i].MarketID

		if p, ok := snapByMarket[marketID]; ok {
			probs[i].PMkt = p
			havePrice = true
			continue
		}
		if r.history != nil && marketID != "" {
			series, err := r.history.FetchPriceHistory(ctx, marketID)
			if err == nil && len(series) > 0 {
				opening := series[0]
				probs[i].PMkt = &opening
				havePrice = true
				continue
			}
		}
		if i < len(prices) && prices[i] != nil {
			probs[i].PMkt = prices[i]
			havePrice = true
		}
	}

	if !havePrice {
		return r.resolutionOnlyRow(ctx, station, day, probs), nil
	}

	decisions := domain.Decide(probs, bankrollUSD, r.sizing, nil, day)
	trades := make([]domain.TradeRecord, 0, len(decisions))
	for _, d := range decisions {
		trades = append(trades, domain.NewTradeRecord(uuid.NewString(), station.StationCode, d))
	}

	resolved := r.resolver.Resolve(ctx, day, trades)
	return DayResult{Station: station.StationCode, EventDay: day, Trades: resolved}, nil
}

// loadForecast prefers a stored forecast snapshot for (station, day) over a
// live fetch, per the backtester's price-and-forecast precedence: replaying
// a past day from what was actually forecast at the time beats a fresh
// reforecast of it today. Falls through to the live fetcher when no reader
// is wired or no snapshot was saved for that day.
func (r *Runner) loadForecast(ctx context.Context, station domain.Station, day time.Time) (domain.Forecast, error) {
	if r.forecastSnap != nil {
		f, ok, err := r.forecastSnap.LoadEarliestForecast(station.StationCode, day)
		if err != nil {
			r.log.Warn("backtest: load forecast snapshot failed", "station_code", station.StationCode, "day", day.Format("2006-01-02"), "err", err)
		} else if ok {
			return f, nil
		}
	}
	return r.forecast.FetchForecast(ctx, station, day)
}

// loadSnapshotPrices reads the earliest saved market snapshot for
// (city, day), if any, keyed by market ID. Returns an empty map (never
// nil) when no reader is wired or no snapshot was ever saved, so callers
// can index it unconditionally.
func (r *Runner) loadSnapshotPrices(city string, day time.Time) map[string]*float64 {
	out := make(map[string]*float64)
	if r.snapshots == nil {
		return out
	}
	quotes, ok, err := r.snapshots.LoadEarliestMarket(city, day)
	if err != nil {
		r.log.Warn("backtest: load snapshot prices failed", "city", city, "day", day.Format("2006-01-02"), "err", err)
		return out
	}
	if !ok {
		return out
	}
	for _, q := range quotes {
		if q.Price != nil {
			p := *q.Price
			out[q.Bracket.MarketID] = &p
		}
	}
	return out
}

// resolutionOnlyRow handles the case where no bracket has a price at all:
// record one pending, zero-size row per bracket, purely so the resolution
// engine can score the forecast's top pick against the actual outcome.
func (r *Runner) resolutionOnlyRow(ctx context.Context, station domain.Station, day time.Time, probs []domain.BracketProb) DayResult {
	top := topPick(probs)
	trades := make([]domain.TradeRecord, 0, len(probs))
	for _, bp := range probs {
		d := domain.EdgeDecision{
			Bracket:   bp.Bracket,
			Edge:      0,
			FKelly:    0,
			SizeUSD:   0,
			Reason:    "resolution_only",
			Timestamp: day,
			PZeus:     bp.PZeus,
			SigmaZ:    bp.SigmaZ,
		}
		if bp.Bracket.Name == top.Bracket.Name {
			d.Reason = "resolution_only_top_pick"
		}
		trades = append(trades, domain.NewTradeRecord(uuid.NewString(), station.StationCode, d))
	}

	resolved := r.resolver.Resolve(ctx, day, trades)
	return DayResult{Station: station.StationCode, EventDay: day, Trades: resolved, ResolutionOnly: true}
}

func topPick(probs []domain.BracketProb) domain.BracketProb {
	best := probs[0]
	for _, bp := range probs[1:] {
		if bp.PZeus > best.PZeus {
			best = bp
		}
	}
	return best
}

func monthHourFunc(station domain.Station, f domain.Forecast) func(i int) (month, hour int) {
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
