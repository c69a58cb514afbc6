package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/evscout/internal/aggregator"
)

// WriteSQLite stores one run in a fresh database at path: a single row in
// run plus the hosts and records tables with one TEXT column per table
// column.
func WriteSQLite(ctx context.Context, path string, run RunInfo, hosts, records aggregator.Table) (err error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale db: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `CREATE TABLE run (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		matches INTEGER NOT NULL,
		devices INTEGER NOT NULL,
		records INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create run table: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO run (run_id, started_at, finished_at, matches, devices, records) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.Matches, run.Devices, len(records.Rows)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err = writeTable(ctx, tx, "hosts", hosts); err != nil {
		return err
	}
	if err = writeTable(ctx, tx, "records", records); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeTable(ctx context.Context, tx *sql.Tx, name string, t aggregator.Table) error {
	cols := sqlColumns(t.Columns)
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s TEXT)", quoteIdent(name), strings.Join(cols, " TEXT, "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s table: %w", name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for i := range args {
			args[i] = ""
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return nil
}

// sqlColumns quotes names. SQLite column names are case-insensitive, so names
// differing only in case get a numeric suffix.
func sqlColumns(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		name := n
		for k := 2; ; k++ {
			if _, dup := seen[strings.ToLower(name)]; !dup {
				break
			}
			name = fmt.Sprintf("%s_%d", n, k)
		}
		seen[strings.ToLower(name)] = i
		out[i] = quoteIdent(name)
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
