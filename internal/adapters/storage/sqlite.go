// Package storage provides a queryable SQLite materialized view over the
// CSV paper ledger (C14's cache layer). The CSV files under the ledger
// directory remain the source of truth; this cache exists only to answer
// the report command's period aggregations without re-parsing every CSV
// file on every query.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/corwinb/skyedge/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id             TEXT PRIMARY KEY,
    timestamp      DATETIME NOT NULL,
    station_code   TEXT     NOT NULL,
    bracket_name   TEXT     NOT NULL,
    market_id      TEXT     NOT NULL,
    edge           REAL     NOT NULL DEFAULT 0,
    f_kelly        REAL     NOT NULL DEFAULT 0,
    size_usd       REAL     NOT NULL DEFAULT 0,
    reason         TEXT     NOT NULL DEFAULT '',
    outcome        TEXT     NOT NULL DEFAULT 'pending',
    realized_pnl   REAL     NOT NULL DEFAULT 0,
    venue          TEXT     NOT NULL DEFAULT '',
    resolved_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_trades_station_ts ON trades(station_code, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_trades_ts         ON trades(timestamp DESC);
`

// Cache is the SQLite-backed read cache over the ledger.
type Cache struct {
	db *sql.DB

	mu       sync.Mutex
	seenHash map[string]string // trade id → cheap fingerprint, skips unchanged upserts
}

// Open creates (or reuses) the cache database at path, applying the schema.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}

	c := &Cache{db: db, seenHash: make(map[string]string)}
	c.warm(context.Background())
	return c, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Upsert writes rows into the cache, skipping any row whose fingerprint is
// unchanged from what is already cached — a normal cycle touches a small
// minority of rows (new trades, or one newly resolved).
func (c *Cache) Upsert(ctx context.Context, rows []domain.TradeRecord) error {
	toWrite := c.filterChanged(rows)
	if len(toWrite) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Upsert: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
			(id, timestamp, station_code, bracket_name, market_id, edge, f_kelly,
			 size_usd, reason, outcome, realized_pnl, venue, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome      = excluded.outcome,
			realized_pnl = excluded.realized_pnl,
			resolved_at  = excluded.resolved_at
	`)
	if err != nil {
		return fmt.Errorf("storage.Upsert: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range toWrite {
		var resolvedAt *time.Time
		if r.ResolvedAt != nil {
			t := r.ResolvedAt.UTC()
			resolvedAt = &t
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Timestamp.UTC(), r.StationCode, r.BracketName, r.MarketID,
			r.Edge, r.FKelly, r.SizeUSD, r.Reason, string(r.Outcome), r.RealizedPnL,
			r.Venue, resolvedAt,
		); err != nil {
			return fmt.Errorf("storage.Upsert: exec %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// QueryResult aggregates the cache for [from, to], optionally filtered to
// one station ("" means all stations), plus the raw resolved P&L and edge
// series needed for distribution statistics (largest win/loss, Sharpe).
type QueryResult struct {
	TradeCount   int
	Wins         int
	Losses       int
	Pending      int
	TotalPnL     float64
	TotalSizeUSD float64
	TotalEdge    float64
	ResolvedPnLs []float64 // one entry per win/loss row, in query order
}

// WinRate returns Wins/(Wins+Losses), or 0 when no trade has resolved yet.
func (p QueryResult) WinRate() float64 {
	settled := p.Wins + p.Losses
	if settled == 0 {
		return 0
	}
	return float64(p.Wins) / float64(settled)
}

// AvgEdge returns the mean edge across every trade in the result, or 0 when
// empty.
func (p QueryResult) AvgEdge() float64 {
	if p.TradeCount == 0 {
		return 0
	}
	return p.TotalEdge / float64(p.TradeCount)
}

// Query aggregates cached trades in [from, to], optionally filtered to one
// station and/or one venue (empty string means unfiltered for that column).
func (c *Cache) Query(ctx context.Context, station, venue string, from, to time.Time) (QueryResult, error) {
	query := `SELECT outcome, realized_pnl, size_usd, edge FROM trades WHERE timestamp BETWEEN ? AND ?`
	args := []interface{}{from.UTC(), to.UTC()}
	if station != "" {
		query += ` AND station_code = ?`
		args = append(args, station)
	}
	if venue != "" {
		query += ` AND venue = ?`
		args = append(args, venue)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("storage.Query: %w", err)
	}
	defer rows.Close()
	return scanQueryResult(rows)
}

// QueryByStation aggregates [from, to] grouped by station_code, one
// QueryResult per station that has at least one trade in range.
func (c *Cache) QueryByStation(ctx context.Context, from, to time.Time) (map[string]QueryResult, error) {
	return c.queryGrouped(ctx, "station_code", from, to)
}

// QueryByVenue aggregates [from, to] grouped by venue, one QueryResult per
// venue that has at least one trade in range.
func (c *Cache) QueryByVenue(ctx context.Context, from, to time.Time) (map[string]QueryResult, error) {
	return c.queryGrouped(ctx, "venue", from, to)
}

// queryGrouped powers QueryByStation/QueryByVenue. column is always one of
// the two caller-fixed literals above, never user input, so string-building
// the column name into the query is safe.
func (c *Cache) queryGrouped(ctx context.Context, column string, from, to time.Time) (map[string]QueryResult, error) {
	query := fmt.Sprintf(`SELECT %s, outcome, realized_pnl, size_usd, edge FROM trades WHERE timestamp BETWEEN ? AND ?`, column)
	rows, err := c.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.queryGrouped: %w", err)
	}
	defer rows.Close()

	out := make(map[string]QueryResult)
	for rows.Next() {
		var key, outcome string
		var pnl, size, edge float64
		if err := rows.Scan(&key, &outcome, &pnl, &size, &edge); err != nil {
			return nil, fmt.Errorf("storage.queryGrouped: scan: %w", err)
		}
		p := out[key]
		accumulate(&p, domain.Outcome(outcome), pnl, size, edge)
		out[key] = p
	}
	return out, rows.Err()
}

func scanQueryResult(rows *sql.Rows) (QueryResult, error) {
	var p QueryResult
	for rows.Next() {
		var outcome string
		var pnl, size, edge float64
		if err := rows.Scan(&outcome, &pnl, &size, &edge); err != nil {
			return QueryResult{}, fmt.Errorf("storage.Query: scan: %w", err)
		}
		accumulate(&p, domain.Outcome(outcome), pnl, size, edge)
	}
	return p, rows.Err()
}

func accumulate(p *QueryResult, outcome domain.Outcome, pnl, size, edge float64) {
	p.TradeCount++
	p.TotalSizeUSD += size
	p.TotalEdge += edge
	switch outcome {
	case domain.OutcomeWin:
		p.Wins++
		p.TotalPnL += pnl
		p.ResolvedPnLs = append(p.ResolvedPnLs, pnl)
	case domain.OutcomeLoss:
		p.Losses++
		p.TotalPnL += pnl
		p.ResolvedPnLs = append(p.ResolvedPnLs, pnl)
	default:
		p.Pending++
	}
}

func (c *Cache) filterChanged(rows []domain.TradeRecord) []domain.TradeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.TradeRecord
	for _, r := range rows {
		fp := fingerprint(r)
		if prev, ok := c.seenHash[r.ID]; ok && prev == fp {
			continue
		}
		c.seenHash[r.ID] = fp
		out = append(out, r)
	}
	return out
}

func fingerprint(r domain.TradeRecord) string {
	return fmt.Sprintf("%s|%.6f", r.Outcome, r.RealizedPnL)
}

func (c *Cache) warm(ctx context.Context) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, outcome, realized_pnl FROM trades`)
	if err != nil {
		return
	}
	defer rows.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	for rows.Next() {
		var id, outcome string
		var pnl float64
		if rows.Scan(&id, &outcome, &pnl) == nil {
			c.seenHash[id] = fmt.Sprintf("%s|%.6f", outcome, pnl)
		}
	}
}
