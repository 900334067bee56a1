// Package resolution implements the resolution engine (C11): grouping
// pending paper trades by (eventDay, city), looking up the winning bracket
// at the venue, and scoring each trade win/loss.
package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/registry"
	"github.com/corwinb/skyedge/internal/domain"
	"github.com/corwinb/skyedge/internal/ports"
)

// Engine resolves pending trades against the venue.
type Engine struct {
	log      *slog.Logger
	registry *registry.Registry
	resolver ports.Resolver
}

// New returns an Engine.
func New(log *slog.Logger, reg *registry.Registry, resolver ports.Resolver) *Engine {
	return &Engine{log: log, registry: reg, resolver: resolver}
}

type groupKey struct {
	eventDay string
	city     string
}

// Resolve scores every pending trade in rows in place, grouping by
// (eventDay, city) and calling the venue once per group. Already-resolved
// rows (win/loss) are left untouched — idempotent against re-running.
// A resolution failure on one group is logged and does not affect others.
func (e *Engine) Resolve(ctx context.Context, eventDay time.Time, rows []domain.TradeRecord) []domain.TradeRecord {
	groups := make(map[groupKey][]int)
	for i, r := range rows {
		if r.Resolved() {
			continue
		}
		city := e.cityFor(r.StationCode)
		key := groupKey{eventDay: eventDay.UTC().Format("2006-01-02"), city: city}
		groups[key] = append(groups[key], i)
	}

	for key, idxs := range groups {
		res, err := e.resolver.ResolveEvent(ctx, key.city, eventDay)
		if err != nil {
			e.log.Warn("resolution: event lookup failed", "city", key.city, "event_day", key.eventDay, "err", err)
			continue
		}
		if !res.Resolved {
			continue
		}
		winner := normalizeBracketName(res.Winner)
		for _, i := range idxs {
			scoreTrade(&rows[i], winner)
		}
	}

	return rows
}

func (e *Engine) cityFor(stationCode string) string {
	st, ok := e.registry.ByCode(stationCode)
	if !ok {
		return stationCode
	}
	return st.City
}

func scoreTrade(r *domain.TradeRecord, winner string) {
	now := time.Now().UTC()
	r.ResolvedAt = &now
	r.WinnerBracket = winner

	if normalizeBracketName(r.BracketName) == winner {
		r.Outcome = domain.OutcomeWin
		r.RealizedPnL = 0
		if r.PMkt > 0 && r.SizeUSD > 0 {
			r.RealizedPnL = round2((1/r.PMkt - 1) * r.SizeUSD)
		}
		return
	}

	r.Outcome = domain.OutcomeLoss
	r.RealizedPnL = 0
	if r.SizeUSD > 0 {
		r.RealizedPnL = round2(-r.SizeUSD)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func normalizeBracketName(s string) string {
	s = strings.ReplaceAll(s, "°F", "")
	s = strings.ReplaceAll(s, "°", "")
	s = strings.ReplaceAll(s, "≤", "")
	s = strings.ReplaceAll(s, "≥", "")
	s = strings.Join(strings.Fields(s), "")
	return s
}

// ResolveDay is a convenience wrapper reading a day's rows from ledger,
// resolving, and rewriting the day wholesale.
func ResolveDay(ctx context.Context, e *Engine, ledger ports.Ledger, day time.Time) error {
	rows, err := ledger.ReadDay(day)
	if err != nil {
		return fmt.Errorf("resolution.ResolveDay: read: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	resolved := e.Resolve(ctx, day, rows)
	if err := ledger.RewriteDay(day, resolved); err != nil {
		return fmt.Errorf("resolution.ResolveDay: rewrite: %w", err)
	}
	return nil
}
