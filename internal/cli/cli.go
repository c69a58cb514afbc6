package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// CLIArgs are the command-line arguments of a single run. Zero values mean
// "use the config file".
type CLIArgs struct {
	// ConfigPath is the YAML configuration file.
	ConfigPath string

	// OutputDir overrides output.output_dir.
	OutputDir string

	// Concurrency overrides the admission gate capacity; 0 means "use config".
	Concurrency int

	// SQLite is non-nil when -sqlite was given explicitly.
	SQLite *bool

	// LogLevel overrides log.level.
	LogLevel string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("evscout", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "evscout.yaml", "Path to the YAML config file (missing file = defaults)")
		outputDir   = fs.String("out", "", "Directory receiving the per-run result folders")
		concurrency = fs.Int("concurrency", 0, "Devices processed concurrently (0=use config)")
		sqlite      = fs.Bool("sqlite", false, "Also write results.db")
		logLevel    = fs.String("log-level", "", "Log level: debug|info|warn|error")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		// Flag parsing errors are useful to return to caller
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *concurrency < 0 {
		return nil, fmt.Errorf("-concurrency must not be negative, got %d", *concurrency)
	}
	level := strings.ToLower(strings.TrimSpace(*logLevel))
	if !logLevels[level] {
		return nil, fmt.Errorf("unknown -log-level %q", *logLevel)
	}

	out := &CLIArgs{
		ConfigPath:  *configPath,
		OutputDir:   *outputDir,
		Concurrency: *concurrency,
		LogLevel:    level,
		RawArgs:     args,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "sqlite" {
			v := *sqlite
			out.SQLite = &v
		}
	})
	return out, nil
}
