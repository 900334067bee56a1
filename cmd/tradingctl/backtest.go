package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/corwinb/skyedge/internal/application/backtest"
	"github.com/corwinb/skyedge/internal/application/resolution"
	"github.com/corwinb/skyedge/internal/domain"
)

func cmdBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "config/config.local.yaml", "path to config file")
	startStr := fs.String("start", "", "start date, YYYY-MM-DD (required)")
	endStr := fs.String("end", "", "end date, YYYY-MM-DD (required)")
	stationsStr := fs.String("stations", "", "comma-separated station codes (default: config's active_stations)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *startStr == "" || *endStr == "" {
		return fmt.Errorf("-start and -end are required (YYYY-MM-DD)")
	}
	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		return fmt.Errorf("parse -end: %w", err)
	}

	svc, err := buildServices(*configPath)
	if err != nil {
		return err
	}
	defer svc.MetricsDB.Close()

	stations := svc.Config.Trading.ActiveStations
	if *stationsStr != "" {
		stations = strings.Split(*stationsStr, ",")
	}

	resolver := resolution.New(svc.Log, svc.Registry, svc.Resolver)

	history, _ := svc.Market.(interface {
		FetchPriceHistory(ctx context.Context, marketID string) ([]float64, error)
	})

	snapshotReader, _ := svc.Snapshotter.(interface {
		LoadEarliestMarket(city string, eventDay time.Time) ([]domain.BracketQuote, bool, error)
	})
	forecastSnapReader, _ := svc.Snapshotter.(interface {
		LoadEarliestForecast(station string, eventDay time.Time) (domain.Forecast, bool, error)
	})

	runner := backtest.New(
		svc.Log,
		svc.Registry,
		svc.Calibration,
		svc.Toggles,
		svc.Forecast,
		svc.Market,
		history,
		snapshotReader,
		forecastSnapReader,
		resolver,
		svc.SizingConfig(),
		domain.ModelMode(svc.Config.ModelMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := runner.Run(ctx, stations, start, end, svc.DailyBankroll())

	runsDir := filepath.Join(svc.Config.Storage.DataDir, "runs", "backtests")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return fmt.Errorf("create runs dir: %w", err)
	}
	outPath := filepath.Join(runsDir, fmt.Sprintf("%s_to_%s.csv", *startStr, *endStr))
	if err := writeBacktestCSV(outPath, results); err != nil {
		return fmt.Errorf("write backtest csv: %w", err)
	}

	printBacktestSummary(results)
	svc.Log.Info("backtest complete", "days", len(results), "output", outPath)
	return nil
}

func writeBacktestCSV(path string, results []backtest.DayResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "station,event_day,bracket_name,edge,f_kelly,size_usd,reason,outcome,realized_pnl,winner_bracket")
	for _, r := range results {
		for _, t := range r.Trades {
			fmt.Fprintf(f, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
				r.Station, r.EventDay.Format("2006-01-02"), t.BracketName,
				strconv.FormatFloat(t.Edge, 'f', -1, 64),
				strconv.FormatFloat(t.FKelly, 'f', -1, 64),
				strconv.FormatFloat(t.SizeUSD, 'f', -1, 64),
				t.Reason, string(t.Outcome),
				strconv.FormatFloat(t.RealizedPnL, 'f', -1, 64),
				t.WinnerBracket,
			)
		}
	}
	return nil
}

func printBacktestSummary(results []backtest.DayResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Station", "Day", "Trades", "Wins", "Losses", "PnL", "Mode")

	for _, r := range results {
		wins, losses := 0, 0
		var pnl float64
		for _, t := range r.Trades {
			switch t.Outcome {
			case domain.OutcomeWin:
				wins++
				pnl += t.RealizedPnL
			case domain.OutcomeLoss:
				losses++
				pnl += t.RealizedPnL
			}
		}
		mode := "sized"
		if r.ResolutionOnly {
			mode = "resolution_only"
		}
		table.Append(
			r.Station,
			r.EventDay.Format("2006-01-02"),
			strconv.Itoa(len(r.Trades)),
			strconv.Itoa(wins),
			strconv.Itoa(losses),
			strconv.FormatFloat(pnl, 'f', 2, 64),
			mode,
		)
	}

	table.Render()
}
