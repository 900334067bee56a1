package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/corwinb/skyedge/internal/application/resolution"
	"github.com/corwinb/skyedge/internal/domain"
)

func cmdResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", "config/config.local.yaml", "path to config file")
	dateStr := fs.String("date", "", "event day to resolve, YYYY-MM-DD (required)")
	station := fs.String("station", "", "restrict resolution to one station code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dateStr == "" {
		return fmt.Errorf("-date is required (YYYY-MM-DD)")
	}
	day, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		return fmt.Errorf("parse -date: %w", err)
	}

	svc, err := buildServices(*configPath)
	if err != nil {
		return err
	}
	defer svc.MetricsDB.Close()

	eng := resolution.New(svc.Log, svc.Registry, svc.Resolver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *station == "" {
		if err := resolution.ResolveDay(ctx, eng, svc.Ledger, day); err != nil {
			return err
		}
	} else {
		rows, err := svc.Ledger.ReadDay(day)
		if err != nil {
			return err
		}
		subset, indices := filterStation(rows, *station)
		resolved := eng.Resolve(ctx, day, subset)
		for i, idx := range indices {
			rows[idx] = resolved[i]
		}
		if err := svc.Ledger.RewriteDay(day, rows); err != nil {
			return fmt.Errorf("rewrite day: %w", err)
		}
	}

	rows, err := svc.Ledger.ReadDay(day)
	if err != nil {
		return err
	}
	if err := svc.MetricsDB.Upsert(ctx, rows); err != nil {
		svc.Log.Warn("resolve: metrics cache upsert failed", "err", err)
	}

	svc.Log.Info("resolve complete", "day", *dateStr, "station", *station, "rows", len(rows))
	return nil
}

// filterStation returns a copy of every row matching station along with
// its index in rows, so the caller can splice the resolved copies back
// into the original slice by position.
func filterStation(rows []domain.TradeRecord, station string) (subset []domain.TradeRecord, indices []int) {
	for i := range rows {
		if rows[i].StationCode == station {
			subset = append(subset, rows[i])
			indices = append(indices, i)
		}
	}
	return subset, indices
}
