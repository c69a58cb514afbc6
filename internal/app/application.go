package app

import (
	"context"
	"errors"

	"github.com/raysh454/evscout/internal/cli"
	"github.com/raysh454/evscout/internal/logging"
)

// Application is the global runtime state container.
// It holds config, parsed CLI args and the core services that are shared
// across modules (pipeline, logger). Pass Application into modules that
// need access to the global state rather than using package-level variables.
type Application struct {
	Config *Config
	Args   *cli.CLIArgs

	Logger   logging.Logger
	Pipeline *Pipeline

	comps *Components
}

// NewApplication applies args over cfg and wires the pipeline. The API key is
// read from the environment named by the config.
func NewApplication(cfg *Config, args *cli.CLIArgs, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	cfg.ApplyArgs(args)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comps, err := NewComponents(cfg, cfg.APIKey(), logger)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:   cfg,
		Args:     args,
		Logger:   logger,
		Pipeline: NewPipeline(cfg, comps, logger),
		comps:    comps,
	}, nil
}

// Run executes one pipeline run.
func (a *Application) Run(ctx context.Context) (*Result, error) {
	if a == nil || a.Pipeline == nil {
		return nil, errors.New("application is nil")
	}
	a.Logger.Info("application starting",
		logging.Field{Key: "titles", Value: len(a.Config.Titles)},
		logging.Field{Key: "concurrency", Value: a.Config.Concurrency},
		logging.Field{Key: "output_dir", Value: a.Config.Output.Dir})
	return a.Pipeline.Run(ctx)
}

// Shutdown releases the shared components.
func (a *Application) Shutdown() error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")
	return a.comps.Close()
}
