package registry

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoad_MissingFileReturnsEmptyRegistry(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing.csv"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestLoad_ParsesValidRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	csv := "station_code,city,station_name,lat,lon,noaa_station,venue_hint,time_zone\n" +
		"KNYC,New York,Central Park,40.78,-73.97,KNYC,nyc,America/New_York\n" +
		"KLAX,Los Angeles,LAX,33.94,-118.41,KLAX,la,America/Los_Angeles\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	r, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	st, ok := r.ByCode("KNYC")
	require.True(t, ok)
	assert.Equal(t, "New York", st.City)
	assert.Equal(t, "America/New_York", st.TimeZone)

	st, ok = r.ByCity("los angeles")
	require.True(t, ok)
	assert.Equal(t, "KLAX", st.StationCode)
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	csv := "station_code,city,station_name,lat,lon,noaa_station,venue_hint,time_zone\n" +
		"KNYC,New York,Central Park,not-a-number,-73.97,KNYC,nyc,America/New_York\n" +
		"KLAX,Los Angeles,LAX,33.94,-118.41,KLAX,la,America/Los_Angeles\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	r, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	_, ok := r.ByCode("KNYC")
	assert.False(t, ok)
}

func TestMustByCode_ErrorsWhenAbsent(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing.csv"), discardLogger())
	require.NoError(t, err)
	_, err = r.MustByCode("KNYC")
	assert.Error(t, err)
}
