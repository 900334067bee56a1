package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/corwinb/skyedge/internal/application/metrics"
)

func cmdReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "config/config.local.yaml", "path to config file")
	station := fs.String("station", "", "restrict to one station code (default: all)")
	venue := fs.String("venue", "", "restrict to one venue (default: all)")
	periodStr := fs.String("period", "30d", "today|7d|30d|365d|all")
	byStation := fs.Bool("by-station", false, "print a per-station breakdown instead of one aggregate")
	byVenue := fs.Bool("by-venue", false, "print a per-venue breakdown instead of one aggregate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period := metrics.Period(*periodStr)
	switch period {
	case metrics.PeriodToday, metrics.PeriodLast7d, metrics.PeriodLast30d, metrics.PeriodLast365d, metrics.PeriodAll:
	default:
		return fmt.Errorf("invalid -period %q: must be one of today|7d|30d|365d|all", *periodStr)
	}

	svc, err := buildServices(*configPath)
	if err != nil {
		return err
	}
	defer svc.MetricsDB.Close()

	agg := metrics.New(svc.MetricsDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()

	switch {
	case *byStation:
		summaries, err := agg.ReportByStation(ctx, period, now)
		if err != nil {
			return err
		}
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].Station < summaries[j].Station })
		fmt.Printf("Report by station, period=%s\n\n", period)
		for _, s := range summaries {
			printReport(s)
		}
	case *byVenue:
		summaries, err := agg.ReportByVenue(ctx, period, now)
		if err != nil {
			return err
		}
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].Venue < summaries[j].Venue })
		fmt.Printf("Report by venue, period=%s\n\n", period)
		for _, s := range summaries {
			printReport(s)
		}
	default:
		summary, err := agg.Report(ctx, *station, *venue, period, now)
		if err != nil {
			return err
		}
		printReport(summary)
	}

	return nil
}

func printReport(s metrics.Summary) {
	label := s.Station
	if s.Venue != "" {
		label = s.Venue
	}
	if label == "" {
		label = "all stations"
	}
	fmt.Printf("Report: %s, period=%s\n\n", label, s.Period)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Total trades", strconv.Itoa(s.Total))
	table.Append("Resolved", strconv.Itoa(s.Resolved))
	table.Append("Pending", strconv.Itoa(s.Pending))
	table.Append("Wins", strconv.Itoa(s.Wins))
	table.Append("Losses", strconv.Itoa(s.Losses))
	table.Append("Hit rate", fmt.Sprintf("%.1f%%", s.HitRate*100))
	table.Append("Avg edge", fmt.Sprintf("%.2f%%", s.AvgEdge*100))
	table.Append("Total risk (USD)", strconv.FormatFloat(s.TotalRiskUSD, 'f', 2, 64))
	table.Append("Total PnL (USD)", strconv.FormatFloat(s.TotalPnLUSD, 'f', 2, 64))
	table.Append("ROI", fmt.Sprintf("%.2f%%", s.ROI*100))
	table.Append("Largest win", strconv.FormatFloat(s.LargestWin, 'f', 2, 64))
	table.Append("Largest loss", strconv.FormatFloat(s.LargestLoss, 'f', 2, 64))
	table.Append("Avg win", strconv.FormatFloat(s.AvgWin, 'f', 2, 64))
	table.Append("Avg loss", strconv.FormatFloat(s.AvgLoss, 'f', 2, 64))
	table.Append("Sharpe", strconv.FormatFloat(s.Sharpe, 'f', 3, 64))
	table.Render()
}
