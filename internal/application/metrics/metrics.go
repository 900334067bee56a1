// Package metrics implements the P&L / metrics aggregator (C14): reads
// resolved trades via the storage cache and computes summary statistics
// over configurable date ranges and breakdowns.
package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/storage"
)

// Period is the standard set of report bands the report command offers.
type Period string

const (
	PeriodToday    Period = "today"
	PeriodLast7d   Period = "7d"
	PeriodLast30d  Period = "30d"
	PeriodLast365d Period = "365d"
	PeriodAll      Period = "all"
)

// Summary is the full metrics report for one (period, station, venue) query.
// Station and Venue are both "" when the Summary is an unfiltered aggregate
// rather than one row of a per-station/per-venue breakdown.
type Summary struct {
	Period       Period
	Station      string
	Venue        string
	Total        int
	Resolved     int
	Pending      int
	Wins         int
	Losses       int
	HitRate      float64
	TotalRiskUSD float64
	TotalPnLUSD  float64
	AvgEdge      float64
	ROI          float64
	LargestWin   float64
	LargestLoss  float64
	AvgWin       float64
	AvgLoss      float64
	Sharpe       float64
}

// Aggregator computes Summary reports from the SQLite cache.
type Aggregator struct {
	cache *storage.Cache
}

// New returns an Aggregator over cache.
func New(cache *storage.Cache) *Aggregator {
	return &Aggregator{cache: cache}
}

// Report computes the Summary for station and venue ("" = unfiltered on
// that dimension) over the named period, anchored at now.
func (a *Aggregator) Report(ctx context.Context, station, venue string, period Period, now time.Time) (Summary, error) {
	from, to := periodRange(period, now)

	p, err := a.cache.Query(ctx, station, venue, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("metrics.Report: %w", err)
	}
	return summarize(p, period, station, venue), nil
}

// ReportByStation breaks the named period down into one Summary per station
// that traded in range, per spec §4.14's per-station breakdown.
func (a *Aggregator) ReportByStation(ctx context.Context, period Period, now time.Time) ([]Summary, error) {
	from, to := periodRange(period, now)
	grouped, err := a.cache.QueryByStation(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("metrics.ReportByStation: %w", err)
	}
	out := make([]Summary, 0, len(grouped))
	for station, p := range grouped {
		out = append(out, summarize(p, period, station, ""))
	}
	return out, nil
}

// ReportByVenue breaks the named period down into one Summary per venue
// that traded in range, per spec §4.14's per-venue breakdown.
func (a *Aggregator) ReportByVenue(ctx context.Context, period Period, now time.Time) ([]Summary, error) {
	from, to := periodRange(period, now)
	grouped, err := a.cache.QueryByVenue(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("metrics.ReportByVenue: %w", err)
	}
	out := make([]Summary, 0, len(grouped))
	for venue, p := range grouped {
		out = append(out, summarize(p, period, "", venue))
	}
	return out, nil
}

func summarize(p storage.QueryResult, period Period, station, venue string) Summary {
	s := Summary{
		Period:       period,
		Station:      station,
		Venue:        venue,
		Total:        p.TradeCount,
		Resolved:     p.Wins + p.Losses,
		Pending:      p.Pending,
		Wins:         p.Wins,
		Losses:       p.Losses,
		HitRate:      p.WinRate(),
		TotalRiskUSD: p.TotalSizeUSD,
		TotalPnLUSD:  p.TotalPnL,
		AvgEdge:      p.AvgEdge(),
	}
	if p.TotalSizeUSD > 0 {
		s.ROI = p.TotalPnL / p.TotalSizeUSD
	}
	s.LargestWin, s.LargestLoss, s.AvgWin, s.AvgLoss = pnlExtremes(p.ResolvedPnLs)
	s.Sharpe = sharpe(p.ResolvedPnLs)
	return s
}

func pnlExtremes(pnls []float64) (largestWin, largestLoss, avgWin, avgLoss float64) {
	var winSum, lossSum float64
	var winN, lossN int
	for _, pnl := range pnls {
		if pnl >= 0 {
			winSum += pnl
			winN++
			if pnl > largestWin {
				largestWin = pnl
			}
		} else {
			lossSum += pnl
			lossN++
			if pnl < largestLoss {
				largestLoss = pnl
			}
		}
	}
	if winN > 0 {
		avgWin = winSum / float64(winN)
	}
	if lossN > 0 {
		avgLoss = lossSum / float64(lossN)
	}
	return
}

// sharpe is a simplified Sharpe ratio: mean(pnl) / stdev(pnl) over resolved
// trades, with no risk-free rate or annualization — a relative ranking
// figure, not a finance-textbook Sharpe.
func sharpe(pnls []float64) float64 {
	n := len(pnls)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, p := range pnls {
		mean += p
	}
	mean /= float64(n)

	var sumSq float64
	for _, p := range pnls {
		d := p - mean
		sumSq += d * d
	}
	stdev := math.Sqrt(sumSq / float64(n))
	if stdev == 0 {
		return 0
	}
	return mean / stdev
}

func periodRange(period Period, now time.Time) (from, to time.Time) {
	now = now.UTC()
	to = now
	switch period {
	case PeriodToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodLast7d:
		from = now.AddDate(0, 0, -7)
	case PeriodLast30d:
		from = now.AddDate(0, 0, -30)
	case PeriodLast365d:
		from = now.AddDate(0, 0, -365)
	default:
		from = time.Unix(0, 0).UTC()
	}
	return from, to
}
