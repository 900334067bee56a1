// Package ledger implements the append-only per-day paper-trade CSV store
// (C6). One file per UTC calendar day, named "YYYY-MM-DD.csv" under the
// configured ledger directory.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

var header = []string{
	"timestamp", "station_code", "bracket_name", "bracket_lower_f", "bracket_upper_f",
	"market_id", "edge", "edge_pct", "f_kelly", "size_usd", "p_zeus", "p_mkt", "sigma_z",
	"reason", "outcome", "realized_pnl", "venue", "resolved_at", "winner_bracket",
}

// Store is a file-backed ports.Ledger implementation.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger.New: mkdir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) pathFor(day time.Time) string {
	return filepath.Join(s.dir, day.UTC().Format("2006-01-02")+".csv")
}

// Append adds rows to the file for day, writing the header first if the
// file does not yet exist.
func (s *Store) Append(day time.Time, rows []domain.TradeRecord) error {
	if len(rows) == 0 {
		return nil
	}
	path := s.pathFor(day)
	needsHeader := true
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		needsHeader = false
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger.Append: open %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("ledger.Append: write header: %w", err)
		}
	}
	for _, r := range rows {
		if err := w.Write(rowToCSV(r)); err != nil {
			return fmt.Errorf("ledger.Append: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadDay returns every row recorded for day, in file order. A missing
// file returns an empty, non-error result.
func (s *Store) ReadDay(day time.Time) ([]domain.TradeRecord, error) {
	path := s.pathFor(day)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger.ReadDay: open %q: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ledger.ReadDay: parse %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]domain.TradeRecord, 0, len(records)-1)
	for _, row := range records[1:] {
		rec, err := rowFromCSV(row)
		if err != nil {
			return nil, fmt.Errorf("ledger.ReadDay: %q: %w", path, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RewriteDay replaces the entire file for day with rows. Reserved for the
// resolution engine, the only caller allowed to replace a day wholesale.
func (s *Store) RewriteDay(day time.Time, rows []domain.TradeRecord) error {
	path := s.pathFor(day)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("ledger.RewriteDay: create %q: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("ledger.RewriteDay: write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(rowToCSV(r)); err != nil {
			f.Close()
			return fmt.Errorf("ledger.RewriteDay: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("ledger.RewriteDay: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ledger.RewriteDay: close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ledger.RewriteDay: rename: %w", err)
	}
	return nil
}

// DaysInRange returns every day in [start, end] for which a ledger file
// exists, ascending.
func (s *Store) DaysInRange(start, end time.Time) ([]time.Time, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("ledger.DaysInRange: read %q: %w", s.dir, err)
	}
	var days []time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		d, err := time.Parse("2006-01-02", name)
		if err != nil {
			continue
		}
		if d.Before(start.UTC()) || d.After(end.UTC()) {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func rowToCSV(r domain.TradeRecord) []string {
	resolvedAt := ""
	if r.ResolvedAt != nil {
		resolvedAt = r.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.StationCode,
		r.BracketName,
		strconv.Itoa(r.BracketLowerF),
		strconv.Itoa(r.BracketUpperF),
		r.MarketID,
		formatFloat(r.Edge),
		formatFloat(r.Edge * 100),
		formatFloat(r.FKelly),
		formatFloat(r.SizeUSD),
		formatFloat(r.PZeus),
		formatFloat(r.PMkt),
		formatFloat(r.SigmaZ),
		r.Reason,
		string(r.Outcome),
		formatFloat(r.RealizedPnL),
		r.Venue,
		resolvedAt,
		r.WinnerBracket,
	}
}

func rowFromCSV(row []string) (domain.TradeRecord, error) {
	if len(row) != len(header) {
		return domain.TradeRecord{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}
	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("parse timestamp: %w", err)
	}
	lowerF, _ := strconv.Atoi(row[3])
	upperF, _ := strconv.Atoi(row[4])
	edge, _ := strconv.ParseFloat(row[6], 64)
	fKelly, _ := strconv.ParseFloat(row[8], 64)
	sizeUSD, _ := strconv.ParseFloat(row[9], 64)
	pZeus, _ := strconv.ParseFloat(row[10], 64)
	pMkt, _ := strconv.ParseFloat(row[11], 64)
	sigmaZ, _ := strconv.ParseFloat(row[12], 64)
	realizedPnL, _ := strconv.ParseFloat(row[15], 64)

	var resolvedAt *time.Time
	if row[17] != "" {
		t, err := time.Parse(time.RFC3339, row[17])
		if err == nil {
			resolvedAt = &t
		}
	}

	return domain.TradeRecord{
		Timestamp:     ts,
		StationCode:   row[1],
		BracketName:   row[2],
		BracketLowerF: lowerF,
		BracketUpperF: upperF,
		MarketID:      row[5],
		Edge:          edge,
		FKelly:        fKelly,
		SizeUSD:       sizeUSD,
		PZeus:         pZeus,
		PMkt:          pMkt,
		SigmaZ:        sigmaZ,
		Reason:        row[13],
		Outcome:       domain.Outcome(row[14]),
		RealizedPnL:   realizedPnL,
		Venue:         row[16],
		ResolvedAt:    resolvedAt,
		WinnerBracket: row[18],
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
