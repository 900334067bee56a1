package calibration

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corwinb/skyedge/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func writeModel(t *testing.T, dir, station string, elevationOffsetC float64, julyNoonBiasC float64) {
	t.Helper()
	var matrix [12][24]float64
	matrix[6][12] = julyNoonBiasC // July is month index 6 (0-indexed), noon is hour 12
	fs := fileShape{
		StationCode:        station,
		Version:            "v1",
		ElevationOffsetC:   elevationOffsetC,
		BiasMatrixSmoothed: matrix,
	}
	data, err := json.Marshal(fs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, station+".json"), data, 0o644))
}

func TestLoad_MissingDirectoryReturnsEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing"), discardLogger())
	require.NoError(t, err)
	assert.False(t, s.HasModel("KNYC"))
}

func TestLoad_ParsesStationFiles(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "KNYC", 0.5, 1.2)

	s, err := Load(dir, discardLogger())
	require.NoError(t, err)
	require.True(t, s.HasModel("KNYC"))

	m, ok := s.Get("KNYC")
	require.True(t, ok)
	assert.Equal(t, "v1", m.Version)
	assert.InDelta(t, 1.2+0.5, m.Correction(7, 12), 1e-9)
}

func TestLoad_SkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "KLAX.json"), []byte("{not json"), 0o644))
	writeModel(t, dir, "KNYC", 0, 0)

	s, err := Load(dir, discardLogger())
	require.NoError(t, err)
	assert.True(t, s.HasModel("KNYC"))
	assert.False(t, s.HasModel("KLAX"))
}

func TestLoad_SkipsFileWithEmptyStationCode(t *testing.T) {
	dir := t.TempDir()
	data, err := json.Marshal(fileShape{StationCode: "", Version: "v1"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.json"), data, 0o644))

	s, err := Load(dir, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, len(s.models))
}

func TestApply_DisabledReturnsForecastUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "KNYC", 5.0, 0)
	s, err := Load(dir, discardLogger())
	require.NoError(t, err)

	f := domain.Forecast{
		StationCode: "KNYC",
		Points: []domain.ForecastPoint{
			{TimeUTC: time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC), TempKelvin: domain.CelsiusToKelvin(20)},
		},
	}
	out := s.Apply(false, f, func(i int) (int, int) { return 7, 12 })
	assert.InDelta(t, f.Points[0].TempKelvin, out.Points[0].TempKelvin, 1e-9)
}

func TestApply_EnabledWithoutModelReturnsForecastUnchanged(t *testing.T) {
	s, err := Load(t.TempDir(), discardLogger())
	require.NoError(t, err)

	f := domain.Forecast{
		StationCode: "KLAX",
		Points: []domain.ForecastPoint{
			{TimeUTC: time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC), TempKelvin: domain.CelsiusToKelvin(20)},
		},
	}
	out := s.Apply(true, f, func(i int) (int, int) { return 7, 12 })
	assert.InDelta(t, f.Points[0].TempKelvin, out.Points[0].TempKelvin, 1e-9)
}

func TestApply_EnabledWithModelAppliesCorrection(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "KNYC", 0.5, 1.0) // July noon bias 1.0C + 0.5C elevation
	s, err := Load(dir, discardLogger())
	require.NoError(t, err)

	f := domain.Forecast{
		StationCode: "KNYC",
		Points: []domain.ForecastPoint{
			{TimeUTC: time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC), TempKelvin: domain.CelsiusToKelvin(20)},
		},
	}
	out := s.Apply(true, f, func(i int) (int, int) { return 7, 12 })
	assert.InDelta(t, domain.CelsiusToKelvin(21.5), out.Points[0].TempKelvin, 1e-9)
}
