package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "cycle":
		err = cmdCycle(args)
	case "run":
		err = cmdRun(args)
	case "backtest":
		err = cmdBacktest(args)
	case "resolve":
		err = cmdResolve(args)
	case "report":
		err = cmdReport(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "tradingctl: unknown subcommand %q\n\n", sub)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "tradingctl %s: %v\n", sub, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `tradingctl <subcommand> [flags]

Subcommands:
  cycle     run one dynamic cycle across the configured stations and exit
  run       run the continuous dynamic loop until interrupted
  backtest  replay a historical date range and score against outcomes
  resolve   resolve one day's pending ledger rows against the venue
  report    print a formatted metrics summary

Run "tradingctl <subcommand> -h" for subcommand flags.`)
}
