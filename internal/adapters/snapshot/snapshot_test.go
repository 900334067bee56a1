package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corwinb/skyedge/internal/domain"
)

func TestNew_CreatesStreamSubdirectories(t *testing.T) {
	root := t.TempDir()
	_, err := New(root)
	require.NoError(t, err)

	for _, sub := range []string{"forecast", "market", "decisions", "observation"} {
		info, err := os.Stat(filepath.Join(root, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSaveForecast_WritesOneFilePerCycle(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	cycle := time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC)
	f := domain.Forecast{StationCode: "KNYC", Points: []domain.ForecastPoint{{TimeUTC: cycle, TempKelvin: 295}}}

	require.NoError(t, s.SaveForecast("KNYC", day, cycle, f))

	entries, err := os.ReadDir(filepath.Join(s.root, "forecast", "KNYC", "2026-07-15"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "20260715T060000Z.json", entries[0].Name())
}

func TestSaveDecisions_WritesEmptySliceWhenNilPassed(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	cycle := time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveDecisions("KNYC", day, cycle, nil))

	entries, err := os.ReadDir(filepath.Join(s.root, "decisions", "KNYC", "2026-07-15"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(s.root, "decisions", "KNYC", "2026-07-15", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"decisions": []`)
}

func TestSaveMarket_WritesUnderCityDir(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	cycle := time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC)
	price := 0.55
	quotes := []domain.BracketQuote{{Bracket: domain.NewBracket(60, 65, "mkt-1", "tok-1"), Price: &price}}
	require.NoError(t, s.SaveMarket("New York", day, cycle, quotes))

	entries, err := os.ReadDir(filepath.Join(s.root, "market", "New York", "2026-07-15"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLoadEarliestForecast_NoSnapshotReturnsNotOK(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	f, ok, err := s.LoadEarliestForecast("KNYC", day)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.Points)
}

func TestLoadEarliestForecast_PicksChronologicallyEarliestOfSeveral(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	early := domain.Forecast{StationCode: "KNYC", Points: []domain.ForecastPoint{{TimeUTC: day, TempKelvin: 290}}}
	late := domain.Forecast{StationCode: "KNYC", Points: []domain.ForecastPoint{{TimeUTC: day, TempKelvin: 300}}}

	require.NoError(t, s.SaveForecast("KNYC", day, time.Date(2026, 7, 15, 18, 0, 0, 0, time.UTC), late))
	require.NoError(t, s.SaveForecast("KNYC", day, time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC), early))

	got, ok, err := s.LoadEarliestForecast("KNYC", day)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Points, 1)
	assert.Equal(t, 290.0, got.Points[0].TempKelvin, "must pick the 06:00 snapshot over the 18:00 one regardless of write order")
}

func TestLoadEarliestMarket_NoSnapshotReturnsNotOK(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	quotes, ok, err := s.LoadEarliestMarket("New York", day)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, quotes)
}

func TestLoadEarliestMarket_ReturnsBracketsFromSoleSnapshot(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	cycle := time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC)
	price := 0.42
	quotes := []domain.BracketQuote{{Bracket: domain.NewBracket(60, 65, "mkt-1", "tok-1"), Price: &price}}
	require.NoError(t, s.SaveMarket("New York", day, cycle, quotes))

	got, ok, err := s.LoadEarliestMarket("New York", day)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "mkt-1", got[0].Bracket.MarketID)
	require.NotNil(t, got[0].Price)
	assert.Equal(t, 0.42, *got[0].Price)
}

func TestLoadEarliestMarket_PicksChronologicallyEarliestOfSeveral(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	earlyPrice, latePrice := 0.30, 0.70
	early := []domain.BracketQuote{{Bracket: domain.NewBracket(60, 65, "mkt-1", "tok-1"), Price: &earlyPrice}}
	late := []domain.BracketQuote{{Bracket: domain.NewBracket(60, 65, "mkt-1", "tok-1"), Price: &latePrice}}

	require.NoError(t, s.SaveMarket("New York", day, time.Date(2026, 7, 15, 18, 0, 0, 0, time.UTC), late))
	require.NoError(t, s.SaveMarket("New York", day, time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC), early))

	got, ok, err := s.LoadEarliestMarket("New York", day)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 0.30, *got[0].Price, "must pick the 06:00 snapshot over the 18:00 one regardless of write order")
}

func TestSaveObservation_DeduplicatesSameObservationTime(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	obsTime := time.Date(2026, 7, 15, 11, 0, 0, 0, time.UTC)
	obs := domain.Observation{StationCode: "KNYC", TimeUTC: obsTime, TempC: 21.0, TempF: 69.8}

	require.NoError(t, s.SaveObservation("KNYC", day, obs))
	require.NoError(t, s.SaveObservation("KNYC", day, obs))

	entries, err := os.ReadDir(filepath.Join(s.root, "observation", "KNYC", "2026-07-15"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveObservation_DeduplicatesAcrossFreshStoreInstance(t *testing.T) {
	root := t.TempDir()
	s1, err := New(root)
	require.NoError(t, err)

	day := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	obsTime := time.Date(2026, 7, 15, 11, 0, 0, 0, time.UTC)
	obs := domain.Observation{StationCode: "KNYC", TimeUTC: obsTime, TempC: 21.0, TempF: 69.8}
	require.NoError(t, s1.SaveObservation("KNYC", day, obs))

	s2, err := New(root)
	require.NoError(t, err)
	require.NoError(t, s2.SaveObservation("KNYC", day, obs))

	entries, err := os.ReadDir(filepath.Join(root, "observation", "KNYC", "2026-07-15"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a fresh Store instance must detect the on-disk file, not just its own in-memory set")
}
