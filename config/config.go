// Package config loads and validates the trading engine's configuration:
// a YAML file, overridden by environment variables, filled out with
// documented defaults (C21).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the engine's full merged configuration.
type Config struct {
	ExecutionMode         string   `yaml:"execution_mode"`
	LogLevel              string   `yaml:"log_level"`
	LogFormat             string   `yaml:"log_format"`
	ModelMode             string   `yaml:"model_mode"`
	ZeusLikelyPct         float64  `yaml:"zeus_likely_pct"`
	ZeusPossiblePct       float64  `yaml:"zeus_possible_pct"`
	DynamicIntervalSeconds int     `yaml:"dynamic_interval_seconds"`
	DynamicLookaheadDays  int      `yaml:"dynamic_lookahead_days"`

	Forecast ForecastConfig `yaml:"forecast"`
	Venue    VenueConfig    `yaml:"venue"`
	Observation ObservationConfig `yaml:"observation"`
	Trading  TradingConfig  `yaml:"trading"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ForecastConfig holds the forecast provider's connection details.
type ForecastConfig struct {
	APIBase string `yaml:"api_base"`
	APIKey  string `yaml:"api_key"`
}

// VenueConfig holds the prediction-market venue's connection details.
type VenueConfig struct {
	GammaBase string `yaml:"gamma_base"`
	CLOBBase  string `yaml:"clob_base"`
}

// ObservationConfig holds the station-observation provider's connection
// details.
type ObservationConfig struct {
	APIBase string `yaml:"api_base"`
}

// TradingConfig carries the cost and risk-limit constants the sizer and
// engine apply.
type TradingConfig struct {
	ActiveStations   []string `yaml:"active_stations"`
	EdgeMin          float64  `yaml:"edge_min"`
	FeeBP            float64  `yaml:"fee_bp"`
	SlippageBP       float64  `yaml:"slippage_bp"`
	KellyCap         float64  `yaml:"kelly_cap"`
	DailyBankrollCap float64  `yaml:"daily_bankroll_cap"`
	PerMarketCap     float64  `yaml:"per_market_cap"`
	LiquidityMinUSD  float64  `yaml:"liquidity_min_usd"`
}

// StorageConfig controls where persisted state lives on disk.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	MetricsDSN   string `yaml:"metrics_dsn"`
}

// Load reads a .env file (if present, silently ignored otherwise), then
// the YAML file at path, applies environment-variable overrides, fills
// remaining fields with documented defaults, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML %q: %w", path, err)
		}
	case os.IsNotExist(err):
		// No local override file yet — proceed with defaults + env only.
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errs: errs}
	}
	return &cfg, nil
}

// ValidationError carries every validation failure found in one pass,
// rather than stopping at the first.
type ValidationError struct {
	Errs []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %d validation error(s): %s", len(e.Errs), strings.Join(e.Errs, "; "))
}

// Validate checks numeric ranges and required fields, returning every
// violation found.
func (c *Config) Validate() []string {
	var errs []string
	if len(c.Trading.ActiveStations) == 0 {
		errs = append(errs, "trading.active_stations must not be empty")
	}
	if c.Trading.EdgeMin < 0 || c.Trading.EdgeMin > 1 {
		errs = append(errs, "trading.edge_min must be in [0,1]")
	}
	if c.Trading.KellyCap <= 0 || c.Trading.KellyCap > 1 {
		errs = append(errs, "trading.kelly_cap must be in (0,1]")
	}
	if c.Trading.DailyBankrollCap <= 0 {
		errs = append(errs, "trading.daily_bankroll_cap must be positive")
	}
	if c.DynamicIntervalSeconds <= 0 {
		errs = append(errs, "dynamic_interval_seconds must be positive")
	}
	if c.DynamicLookaheadDays < 1 {
		errs = append(errs, "dynamic_lookahead_days must be at least 1")
	}
	if c.ModelMode != "spread" && c.ModelMode != "bands" {
		errs = append(errs, "model_mode must be \"spread\" or \"bands\"")
	}
	if c.ExecutionMode != "paper" {
		errs = append(errs, "execution_mode: only \"paper\" is supported")
	}
	return errs
}

// DynamicInterval returns the configured dynamic-engine cycle interval.
func (c *Config) DynamicInterval() time.Duration {
	return time.Duration(c.DynamicIntervalSeconds) * time.Second
}

// SaveWithBackup validates cfg, copies whatever currently lives at path to
// a timestamped ".bak.<ts>" sibling (if it exists), then writes cfg to
// path. Callers are responsible for recording the resulting change in the
// C13 changelog; this function only handles the file swap.
func SaveWithBackup(path string, cfg *Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return &ValidationError{Errs: errs}
	}

	if existing, err := os.ReadFile(path); err == nil {
		backupPath := fmt.Sprintf("%s.bak.%s", path, time.Now().UTC().Format("20060102T150405Z"))
		if err := os.WriteFile(backupPath, existing, 0o644); err != nil {
			return fmt.Errorf("config.SaveWithBackup: backup: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config.SaveWithBackup: read existing: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config.SaveWithBackup: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config.SaveWithBackup: write %q: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("MODEL_MODE"); v != "" {
		cfg.ModelMode = v
	}
	if v := os.Getenv("ZEUS_API_BASE"); v != "" {
		cfg.Forecast.APIBase = v
	}
	if v := os.Getenv("ZEUS_API_KEY"); v != "" {
		cfg.Forecast.APIKey = v
	}
	if v := os.Getenv("VENUE_GAMMA_BASE"); v != "" {
		cfg.Venue.GammaBase = v
	}
	if v := os.Getenv("VENUE_CLOB_BASE"); v != "" {
		cfg.Venue.CLOBBase = v
	}
	if v := os.Getenv("OBSERVATION_API_BASE"); v != "" {
		cfg.Observation.APIBase = v
	}
	if v := os.Getenv("DYNAMIC_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DynamicIntervalSeconds = n
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.ExecutionMode == "" {
		cfg.ExecutionMode = "paper"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.ModelMode == "" {
		cfg.ModelMode = "spread"
	}
	if cfg.ZeusLikelyPct == 0 {
		cfg.ZeusLikelyPct = 0.80
	}
	if cfg.ZeusPossiblePct == 0 {
		cfg.ZeusPossiblePct = 0.95
	}
	if cfg.DynamicIntervalSeconds <= 0 {
		cfg.DynamicIntervalSeconds = 900
	}
	if cfg.DynamicLookaheadDays <= 0 {
		cfg.DynamicLookaheadDays = 2
	}
	if cfg.Forecast.APIBase == "" {
		cfg.Forecast.APIBase = "https://api.zeus-forecast.example/v1"
	}
	if cfg.Venue.GammaBase == "" {
		cfg.Venue.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Venue.CLOBBase == "" {
		cfg.Venue.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.Observation.APIBase == "" {
		cfg.Observation.APIBase = "https://aviationweather.gov/api/data"
	}
	if cfg.Trading.EdgeMin <= 0 {
		cfg.Trading.EdgeMin = 0.05
	}
	if cfg.Trading.FeeBP <= 0 {
		cfg.Trading.FeeBP = 50
	}
	if cfg.Trading.SlippageBP <= 0 {
		cfg.Trading.SlippageBP = 30
	}
	if cfg.Trading.KellyCap <= 0 {
		cfg.Trading.KellyCap = 0.10
	}
	if cfg.Trading.DailyBankrollCap <= 0 {
		cfg.Trading.DailyBankrollCap = 3000.0
	}
	if cfg.Trading.PerMarketCap <= 0 {
		cfg.Trading.PerMarketCap = 500.0
	}
	if cfg.Trading.LiquidityMinUSD <= 0 {
		cfg.Trading.LiquidityMinUSD = 1000.0
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.MetricsDSN == "" {
		cfg.Storage.MetricsDSN = cfg.Storage.DataDir + "/metrics.db"
	}
}
