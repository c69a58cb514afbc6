// Command evscout discovers EV charging stations through Shodan, enriches the
// hosts and harvests the status pages of the supported vendors.
// Usage: go run . [-config evscout.yaml] [-out results] [-concurrency 9] [-sqlite] [-log-level info]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/evscout/internal/app"
	"github.com/raysh454/evscout/internal/cli"
	"github.com/raysh454/evscout/internal/envfile"
	"github.com/raysh454/evscout/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "evscout: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}

	cfg, err := app.LoadConfig(args.ConfigPath)
	if err != nil {
		return err
	}

	if cfg.DotEnv != "" {
		if err := envfile.Load(cfg.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", cfg.DotEnv, err)
		}
	}

	level := cfg.Log.Level
	if args.LogLevel != "" {
		level = args.LogLevel
	}
	logger := logging.NewLogger("evscout", logging.Options{Level: level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApplication(cfg, args, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Shutdown(); err != nil {
			logger.Warn("shutdown", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	res, err := a.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d matches, %d devices, %d records\n", res.RunID, len(res.Matches), len(res.Devices), len(res.Records))
	fmt.Printf("  hosts:   %s\n", res.Paths.Hosts)
	fmt.Printf("  records: %s\n", res.Paths.Records)
	if res.Paths.SQLite != "" {
		fmt.Printf("  sqlite:  %s\n", res.Paths.SQLite)
	}
	return nil
}
