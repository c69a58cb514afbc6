// Package exporter writes the output tables of one run to disk.
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/evscout/internal/aggregator"
	"github.com/raysh454/evscout/internal/logging"
)

const (
	HostsFile   = "hosts.csv"
	RecordsFile = "scraped_data.csv"
	SQLiteFile  = "results.db"
)

// RunInfo describes the run being exported.
type RunInfo struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Matches    int
	Devices    int
}

type Config struct {
	// Dir is the parent of the per-run output directories (default "results").
	Dir string `yaml:"output_dir"`

	// SQLite additionally writes results.db.
	SQLite bool `yaml:"sqlite"`
}

// Paths lists the files written for a run.
type Paths struct {
	Dir     string
	Hosts   string
	Records string
	SQLite  string
}

type Exporter struct {
	cfg    Config
	logger logging.Logger
}

func New(cfg Config, logger logging.Logger) *Exporter {
	if cfg.Dir == "" {
		cfg.Dir = "results"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Exporter{cfg: cfg, logger: logger.With(logging.Field{Key: "component", Value: "exporter"})}
}

// Export writes <dir>/<run-id>/{hosts.csv,scraped_data.csv[,results.db]}.
func (e *Exporter) Export(ctx context.Context, run RunInfo, hosts, records aggregator.Table) (*Paths, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	dir := filepath.Join(e.cfg.Dir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	p := &Paths{
		Dir:     dir,
		Hosts:   filepath.Join(dir, HostsFile),
		Records: filepath.Join(dir, RecordsFile),
	}
	if err := WriteCSV(p.Hosts, hosts); err != nil {
		return nil, err
	}
	if err := WriteCSV(p.Records, records); err != nil {
		return nil, err
	}

	if e.cfg.SQLite {
		p.SQLite = filepath.Join(dir, SQLiteFile)
		if err := WriteSQLite(ctx, p.SQLite, run, hosts, records); err != nil {
			return nil, err
		}
	}

	e.logger.Info("results saved",
		logging.Field{Key: "dir", Value: dir},
		logging.Field{Key: "hosts", Value: len(hosts.Rows)},
		logging.Field{Key: "records", Value: len(records.Rows)},
		logging.Field{Key: "sqlite", Value: e.cfg.SQLite})
	return p, nil
}
