package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFailsValidationWithoutStations(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errs, "trading.active_stations must not be empty")
}

func TestLoad_FillsAmbientDefaultsWhenStationsProvided(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  active_stations: [KNYC]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.ExecutionMode)
	assert.Equal(t, "spread", cfg.ModelMode)
	assert.Equal(t, 900, cfg.DynamicIntervalSeconds)
}

func TestLoad_ParsesYAMLAndAppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "trading:\n  active_stations: [KNYC]\n  edge_min: 0.08\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"KNYC"}, cfg.Trading.ActiveStations)
	assert.Equal(t, 0.08, cfg.Trading.EdgeMin)
	assert.Equal(t, 0.10, cfg.Trading.KellyCap) // default, not overridden
}

func TestValidate_RejectsEmptyStationList(t *testing.T) {
	cfg := Config{ExecutionMode: "paper", ModelMode: "spread", DynamicIntervalSeconds: 900, DynamicLookaheadDays: 1}
	cfg.Trading.EdgeMin = 0.05
	cfg.Trading.KellyCap = 0.1
	cfg.Trading.DailyBankrollCap = 1000
	errs := cfg.Validate()
	assert.Contains(t, errs, "trading.active_stations must not be empty")
}

func TestValidate_RejectsBadModelMode(t *testing.T) {
	cfg := Config{ExecutionMode: "paper", ModelMode: "unknown", DynamicIntervalSeconds: 900, DynamicLookaheadDays: 1}
	cfg.Trading.ActiveStations = []string{"KNYC"}
	cfg.Trading.EdgeMin = 0.05
	cfg.Trading.KellyCap = 0.1
	cfg.Trading.DailyBankrollCap = 1000
	errs := cfg.Validate()
	assert.Contains(t, errs, `model_mode must be "spread" or "bands"`)
}

func TestValidate_RejectsLiveExecutionMode(t *testing.T) {
	cfg := Config{ExecutionMode: "live", ModelMode: "spread", DynamicIntervalSeconds: 900, DynamicLookaheadDays: 1}
	cfg.Trading.ActiveStations = []string{"KNYC"}
	cfg.Trading.EdgeMin = 0.05
	cfg.Trading.KellyCap = 0.1
	cfg.Trading.DailyBankrollCap = 1000
	errs := cfg.Validate()
	assert.Contains(t, errs, `execution_mode: only "paper" is supported`)
}

func TestSaveWithBackup_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{}
	err := SaveWithBackup(path, cfg)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveWithBackup_BacksUpPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("execution_mode: paper\ntrading:\n  active_stations: [KNYC]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, SaveWithBackup(path, cfg))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var sawBackup bool
	for _, e := range entries {
		if e.Name() != "config.yaml" {
			sawBackup = true
		}
	}
	assert.True(t, sawBackup, "expected a .bak.<ts> sibling to be written")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MODEL_MODE", "bands")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  active_stations: [KNYC]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "bands", cfg.ModelMode)
}
