// Package changelog appends and reads model/configuration change records
// (C13): one JSON array file, rewritten wholesale on each append since
// entries are small and infrequent.
package changelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/corwinb/skyedge/internal/domain"
)

// Store guards the on-disk changelog file.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a Store for path, creating an empty changelog file if none
// exists yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("changelog.Open: mkdir: %w", err)
		}
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("changelog.Open: init %q: %w", path, err)
		}
	}
	return s, nil
}

// All returns every recorded entry, oldest first.
func (s *Store) All() ([]domain.ChangelogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store) readLocked() ([]domain.ChangelogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("changelog: read %q: %w", s.path, err)
	}
	var entries []domain.ChangelogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("changelog: parse %q: %w", s.path, err)
	}
	return entries, nil
}

// Append adds entry to the changelog, assigning it an ID if it does not
// already have one.
func (s *Store) Append(entry domain.ChangelogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("changelog: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("changelog: write %q: %w", s.path, err)
	}
	return nil
}
