// Package toggles persists feature toggles (C12) as a small JSON file,
// read at startup.
package toggles

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/corwinb/skyedge/internal/domain"
)

// Store guards concurrent access to the toggles file and an in-memory copy.
type Store struct {
	mu   sync.RWMutex
	path string
	cur  domain.FeatureToggles
}

// Load reads path, creating it with defaults if it does not exist. A
// malformed file is not fatal: it logs a warning and falls back to defaults.
func Load(path string, log *slog.Logger) (*Store, error) {
	s := &Store{path: path, cur: domain.DefaultFeatureToggles()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := s.persist(); werr != nil {
			return nil, fmt.Errorf("toggles.Load: write defaults: %w", werr)
		}
		return s, nil
	}
	if err != nil {
		log.Warn("toggles: could not read file, using defaults", "path", path, "err", err)
		return s, nil
	}

	var t domain.FeatureToggles
	if err := json.Unmarshal(data, &t); err != nil {
		log.Warn("toggles: malformed file, using defaults", "path", path, "err", err)
		return s, nil
	}
	s.cur = t
	return s, nil
}

// Current returns the in-memory toggle state.
func (s *Store) Current() domain.FeatureToggles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set updates and persists the toggle state.
func (s *Store) Set(t domain.FeatureToggles) error {
	s.mu.Lock()
	s.cur = t
	s.mu.Unlock()
	return s.persist()
}

func (s *Store) persist() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.cur, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("toggles: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("toggles: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("toggles: write %q: %w", s.path, err)
	}
	return nil
}
