// Package calibration loads per-station bias-correction models (C3): a
// 12-month x 24-hour matrix of additive Celsius corrections plus an
// elevation offset, persisted as one JSON file per station code.
package calibration

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/corwinb/skyedge/internal/domain"
)

// Store holds loaded calibration models keyed by station code.
type Store struct {
	mu     sync.RWMutex
	models map[string]domain.CalibrationModel
}

type fileShape struct {
	StationCode        string          `json:"station_code"`
	Version            string          `json:"version"`
	ElevationOffsetC   float64         `json:"elevation_offset_c"`
	BiasMatrixSmoothed [12][24]float64 `json:"bias_matrix_smoothed"`
}

// Load reads every "*.json" file in dir, keyed by each file's own
// station_code field. A missing directory is not fatal: it logs a warning
// and returns an empty store. A malformed file for one station (bad JSON,
// empty station_code, or a bias matrix that is not 12x24) is skipped with a
// warning; it does not abort loading the rest.
func Load(dir string, log *slog.Logger) (*Store, error) {
	s := &Store{models: make(map[string]domain.CalibrationModel)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("calibration: could not read directory, continuing without station calibration", "dir", dir, "err", err)
		return s, nil
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("calibration: skipping unreadable file", "path", path, "err", err)
			continue
		}
		var fs fileShape
		if err := json.Unmarshal(data, &fs); err != nil {
			log.Warn("calibration: skipping malformed file", "path", path, "err", err)
			continue
		}
		if fs.StationCode == "" {
			log.Warn("calibration: skipping file with empty station_code", "path", path)
			continue
		}
		var shape struct {
			Matrix [][]float64 `json:"bias_matrix_smoothed"`
		}
		_ = json.Unmarshal(data, &shape)
		validShape := len(shape.Matrix) == 12
		for _, row := range shape.Matrix {
			validShape = validShape && len(row) == 24
		}
		if !validShape {
			log.Warn("calibration: skipping file whose bias matrix is not 12x24", "path", path)
			continue
		}
		s.models[fs.StationCode] = domain.CalibrationModel{
			StationCode:        fs.StationCode,
			Version:            fs.Version,
			ElevationOffsetC:   fs.ElevationOffsetC,
			BiasMatrixSmoothed: fs.BiasMatrixSmoothed,
		}
	}

	return s, nil
}

// HasModel reports whether a calibration model exists for stationCode.
func (s *Store) HasModel(stationCode string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.models[stationCode]
	return ok
}

// Get returns the calibration model for stationCode, if any.
func (s *Store) Get(stationCode string) (domain.CalibrationModel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[stationCode]
	return m, ok
}

// Apply calibrates f if, and only if, enabled is true and a model exists
// for f.StationCode; otherwise it returns f unchanged. localMonthHour maps
// a forecast point index to its local (month, hour) for correction lookup.
func (s *Store) Apply(enabled bool, f domain.Forecast, localMonthHour func(i int) (month, hour int)) domain.Forecast {
	if !enabled {
		return f
	}
	model, ok := s.Get(f.StationCode)
	if !ok {
		return f
	}
	return model.ApplyToForecast(f, localMonthHour)
}
