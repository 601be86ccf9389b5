package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/rocketimages/internal/app"
	"github.com/jgivc/rocketimages/internal/config"
)

const (
	exitOK = iota
	exitRunFailed
	exitSetup
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// run returns the process exit code; every resource is released before it returns.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("rocketimages", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cfgFileName := flags.String("c", "config.yml", "Path to config file")
	history := flags.Int("history", 0, "Print the last N runs and exit. Runs of earlier processes are kept only with redis_url")
	if err := flags.Parse(args); err != nil {
		return exitSetup
	}

	cfg, err := config.Load(*cfgFileName)
	if err != nil {
		fmt.Fprintf(stderr, "Cannot load config: %s\n", err)
		return exitSetup
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Cannot start: %s\n", err)
		return exitSetup
	}
	defer a.Close()

	if *history > 0 {
		if !a.HistoryPersistent() {
			fmt.Fprintln(stderr, "Run history is kept in memory only, set redis_url to list runs of earlier processes.")
		}

		runs, err := a.History(ctx, *history)
		if err != nil {
			fmt.Fprintf(stderr, "Cannot get history: %s\n", err)
			return exitSetup
		}

		for i, run := range runs {
			fmt.Fprintf(stdout, "%d. %s %s %s %s", i+1, run.StartedAt.Format("2006-01-02 15:04:05"), run.ID, run.Pipeline, run.Status)
			if run.Error != "" {
				fmt.Fprintf(stdout, ": %s", run.Error)
			}
			fmt.Fprintln(stdout)
		}

		return exitOK
	}

	res, err := a.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Run %s failed: %s\n", res.RunID, err)
		return exitRunFailed
	}

	fmt.Fprintf(stdout, "Run %s done.\n", res.RunID)

	return exitOK
}
