// Package snapshot implements the four JSON replay streams (C7): forecast,
// market, decisions, and observation. Every write is a full, synchronous
// JSON file; nothing already on disk is ever mutated.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

const fileStamp = "20060102T150405Z"

// Store writes snapshots under a root directory, one subtree per stream.
type Store struct {
	root string

	mu       sync.Mutex
	seenObs  map[string]struct{} // in-memory dedup set, keyed by station|eventDay|obsTime
}

// New returns a Store rooted at root, creating the four stream
// subdirectories if necessary.
func New(root string) (*Store, error) {
	for _, sub := range []string{"forecast", "market", "decisions", "observation"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("snapshot.New: mkdir %q: %w", sub, err)
		}
	}
	return &Store{root: root, seenObs: make(map[string]struct{})}, nil
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %q: %w", path, err)
	}
	return nil
}

// SaveForecast writes one forecast fetch.
func (s *Store) SaveForecast(station string, eventDay, cycleTime time.Time, f domain.Forecast) error {
	eventDayStr := eventDay.UTC().Format("2006-01-02")
	path := filepath.Join(s.root, "forecast", station, eventDayStr, cycleTime.UTC().Format(fileStamp)+".json")
	snap := domain.ForecastSnapshot{
		Station:      station,
		EventDay:     eventDayStr,
		CycleTime:    cycleTime.UTC().Format(time.RFC3339),
		FetchedAtUTC: cycleTime.UTC(),
		Points:       f.Points,
	}
	return writeJSON(path, snap)
}

// SaveMarket writes one market-price fetch.
func (s *Store) SaveMarket(city string, eventDay, cycleTime time.Time, quotes []domain.BracketQuote) error {
	eventDayStr := eventDay.UTC().Format("2006-01-02")
	path := filepath.Join(s.root, "market", city, eventDayStr, cycleTime.UTC().Format(fileStamp)+".json")
	snap := domain.MarketSnapshot{
		City:         city,
		EventDay:     eventDayStr,
		CycleTime:    cycleTime.UTC().Format(time.RFC3339),
		FetchedAtUTC: cycleTime.UTC(),
		Brackets:     quotes,
	}
	return writeJSON(path, snap)
}

// SaveDecisions writes the decisions emitted in one cycle, even when empty.
func (s *Store) SaveDecisions(station string, eventDay, cycleTime time.Time, decisions []domain.EdgeDecision) error {
	eventDayStr := eventDay.UTC().Format("2006-01-02")
	path := filepath.Join(s.root, "decisions", station, eventDayStr, cycleTime.UTC().Format(fileStamp)+".json")
	if decisions == nil {
		decisions = []domain.EdgeDecision{}
	}
	snap := domain.DecisionSnapshot{
		Station:   station,
		EventDay:  eventDayStr,
		CycleTime: cycleTime.UTC().Format(time.RFC3339),
		Decisions: decisions,
	}
	return writeJSON(path, snap)
}

// LoadEarliestForecast implements ports.ForecastSnapshotReader (C10 step 2:
// prefer a stored forecast snapshot over a live fetch). Same lexical-order-
// is-chronological-order reasoning as LoadEarliestMarket below.
func (s *Store) LoadEarliestForecast(station string, eventDay time.Time) (domain.Forecast, bool, error) {
	dir := filepath.Join(s.root, "forecast", station, eventDay.UTC().Format("2006-01-02"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Forecast{}, false, nil
		}
		return domain.Forecast{}, false, fmt.Errorf("snapshot: list %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return domain.Forecast{}, false, nil
	}
	sort.Strings(names)

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	if err != nil {
		return domain.Forecast{}, false, fmt.Errorf("snapshot: read %q: %w", names[0], err)
	}
	var snap domain.ForecastSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Forecast{}, false, fmt.Errorf("snapshot: decode %q: %w", names[0], err)
	}
	return domain.Forecast{StationCode: station, Points: snap.Points}, true, nil
}

// LoadEarliestMarket implements ports.SnapshotReader (C10's
// highest-priority backtest price source): the market snapshot file names
// are cycle timestamps in the fileStamp format, so lexical order is
// chronological order and the first entry is the earliest fetch of the
// day.
func (s *Store) LoadEarliestMarket(city string, eventDay time.Time) ([]domain.BracketQuote, bool, error) {
	dir := filepath.Join(s.root, "market", city, eventDay.UTC().Format("2006-01-02"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("snapshot: list %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, false, nil
	}
	sort.Strings(names)

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: read %q: %w", names[0], err)
	}
	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("snapshot: decode %q: %w", names[0], err)
	}
	return snap.Brackets, true, nil
}

// SaveObservation writes one METAR-shaped observation, deduplicated by
// (station, eventDay, observation time) against both an in-memory set and
// the on-disk directory listing — the in-memory set alone would miss
// duplicates seen across process restarts.
func (s *Store) SaveObservation(station string, eventDay time.Time, obs domain.Observation) error {
	eventDayStr := eventDay.UTC().Format("2006-01-02")
	key := station + "|" + eventDayStr + "|" + obs.TimeUTC.UTC().Format(fileStamp)

	s.mu.Lock()
	_, seen := s.seenObs[key]
	s.mu.Unlock()
	if seen {
		return nil
	}

	dir := filepath.Join(s.root, "observation", station, eventDayStr)
	filename := obs.TimeUTC.UTC().Format(fileStamp) + ".json"
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); err == nil {
		s.mu.Lock()
		s.seenObs[key] = struct{}{}
		s.mu.Unlock()
		return nil
	}

	snap := domain.ObservationSnapshot{
		Station:         station,
		EventDay:        eventDayStr,
		ObservationTime: obs.TimeUTC.UTC(),
		Observation:     obs,
	}
	if err := writeJSON(path, snap); err != nil {
		return err
	}

	s.mu.Lock()
	s.seenObs[key] = struct{}{}
	s.mu.Unlock()
	return nil
}
