package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corwinb/skyedge/internal/adapters/calibration"
	"github.com/corwinb/skyedge/internal/adapters/registry"
	"github.com/corwinb/skyedge/internal/adapters/toggles"
	"github.com/corwinb/skyedge/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func loadRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.csv")
	csv := "station_code,city,station_name,lat,lon,noaa_station,venue_hint,time_zone\n" +
		"KNYC,New York,Central Park,40.78,-73.97,KNYC,nyc,America/New_York\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	r, err := registry.Load(path, discardLogger())
	require.NoError(t, err)
	return r
}

func emptyCalibration(t *testing.T) *calibration.Store {
	t.Helper()
	s, err := calibration.Load(filepath.Join(t.TempDir(), "missing"), discardLogger())
	require.NoError(t, err)
	return s
}

func defaultToggles(t *testing.T) *toggles.Store {
	t.Helper()
	s, err := toggles.Load(filepath.Join(t.TempDir(), "toggles.json"), discardLogger())
	require.NoError(t, err)
	return s
}

type fakeMarket struct {
	open     bool
	brackets []domain.Bracket
	prices   []*float64
	depth    map[string]float64
}

func (f *fakeMarket) HaveOpenMarkets(ctx context.Context, city string, eventDay time.Time) (bool, error) {
	return f.open, nil
}
func (f *fakeMarket) FetchMarket(ctx context.Context, city string, eventDay time.Time) ([]domain.Bracket, []*float64, error) {
	return f.brackets, f.prices, nil
}
func (f *fakeMarket) FetchDepth(ctx context.Context, marketIDs []string) (map[string]float64, error) {
	return f.depth, nil
}

type fakeForecast struct {
	f domain.Forecast
}

func (f *fakeForecast) FetchForecast(ctx context.Context, station domain.Station, eventDay time.Time) (domain.Forecast, error) {
	return f.f, nil
}

type fakeObservation struct{}

func (fakeObservation) FetchObservations(ctx context.Context, station domain.Station, eventDay time.Time) ([]domain.Observation, error) {
	return nil, nil
}

type fakeLedger struct {
	appended []domain.TradeRecord
}

func (f *fakeLedger) Append(day time.Time, rows []domain.TradeRecord) error {
	f.appended = append(f.appended, rows...)
	return nil
}
func (f *fakeLedger) ReadDay(day time.Time) ([]domain.TradeRecord, error)    { return nil, nil }
func (f *fakeLedger) RewriteDay(day time.Time, rows []domain.TradeRecord) error { return nil }
func (f *fakeLedger) DaysInRange(start, end time.Time) ([]time.Time, error) { return nil, nil }

type fakeSnapshotter struct {
	decisionsSaved int
}

func (f *fakeSnapshotter) SaveForecast(station string, eventDay, cycleTime time.Time, fc domain.Forecast) error {
	return nil
}
func (f *fakeSnapshotter) SaveMarket(city string, eventDay, cycleTime time.Time, quotes []domain.BracketQuote) error {
	return nil
}
func (f *fakeSnapshotter) SaveDecisions(station string, eventDay, cycleTime time.Time, decisions []domain.EdgeDecision) error {
	f.decisionsSaved++
	return nil
}
func (f *fakeSnapshotter) SaveObservation(station string, eventDay time.Time, obs domain.Observation) error {
	return nil
}

func forecastAt(kelvin float64, n int, start time.Time) domain.Forecast {
	points := make([]domain.ForecastPoint, n)
	for i := range points {
		points[i] = domain.ForecastPoint{TimeUTC: start.Add(time.Duration(i) * time.Hour), TempKelvin: kelvin}
	}
	return domain.Forecast{StationCode: "KNYC", Points: points}
}

func baseSizing() domain.SizingConfig {
	return domain.SizingConfig{EdgeMin: 0.03, FeeBP: 50, SlippageBP: 30, KellyCap: 0.2, PerMarketCap: 500, LiquidityMin: 0}
}

func TestRunCycle_SkipsStationWithNoOpenMarkets(t *testing.T) {
	ledger := &fakeLedger{}
	snap := &fakeSnapshotter{}
	eng := New(discardLogger(), loadRegistry(t), emptyCalibration(t), defaultToggles(t),
		&fakeForecast{}, &fakeMarket{open: false}, fakeObservation{}, ledger, snap,
		Config{Stations: []string{"KNYC"}, LookaheadDays: 1, Sizing: baseSizing(), ModelMode: domain.ModelSpread, DailyBankroll: 1000})

	eng.RunCycle(context.Background(), time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC))
	assert.Empty(t, ledger.appended)
}

func TestRunCycle_SkipsUnknownStationCode(t *testing.T) {
	ledger := &fakeLedger{}
	snap := &fakeSnapshotter{}
	eng := New(discardLogger(), loadRegistry(t), emptyCalibration(t), defaultToggles(t),
		&fakeForecast{}, &fakeMarket{open: true}, fakeObservation{}, ledger, snap,
		Config{Stations: []string{"ZZZZ"}, LookaheadDays: 1, Sizing: baseSizing(), ModelMode: domain.ModelSpread, DailyBankroll: 1000})

	eng.RunCycle(context.Background(), time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC))
	assert.Empty(t, ledger.appended)
}

func TestRunCycle_NoBracketsSkipsScoringButStillSnapshots(t *testing.T) {
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	f := forecastAt(domain.CelsiusToKelvin(20), 24, day)
	ledger := &fakeLedger{}
	snap := &fakeSnapshotter{}
	eng := New(discardLogger(), loadRegistry(t), emptyCalibration(t), defaultToggles(t),
		&fakeForecast{f: f}, &fakeMarket{open: true}, fakeObservation{}, ledger, snap,
		Config{Stations: []string{"KNYC"}, LookaheadDays: 1, Sizing: baseSizing(), ModelMode: domain.ModelSpread, DailyBankroll: 1000})

	eng.RunCycle(context.Background(), day)
	assert.Empty(t, ledger.appended)
	assert.Equal(t, 0, snap.decisionsSaved)
}

func TestRunCycle_AppendsTradeWhenEdgeFound(t *testing.T) {
	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	f := forecastAt(domain.CelsiusToKelvin(19.5), 24, day) // ~67.1F, inside the 60-70F bracket below

	price := 0.30
	bracket := domain.NewBracket(60, 70, "mkt-1", "tok-1")
	market := &fakeMarket{
		open:     true,
		brackets: []domain.Bracket{bracket},
		prices:   []*float64{&price},
		depth:    map[string]float64{"mkt-1": 5000},
	}

	ledger := &fakeLedger{}
	snap := &fakeSnapshotter{}
	eng := New(discardLogger(), loadRegistry(t), emptyCalibration(t), defaultToggles(t),
		&fakeForecast{f: f}, market, fakeObservation{}, ledger, snap,
		Config{Stations: []string{"KNYC"}, LookaheadDays: 1, Sizing: baseSizing(), ModelMode: domain.ModelSpread, DailyBankroll: 1000})

	eng.RunCycle(context.Background(), day)
	assert.Equal(t, 1, snap.decisionsSaved)
	require.Len(t, ledger.appended, 1)
	assert.Equal(t, "KNYC", ledger.appended[0].StationCode)
}
