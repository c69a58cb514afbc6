package exporter_test

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/evscout/internal/aggregator"
	"github.com/raysh454/evscout/internal/exporter"
	"github.com/raysh454/evscout/internal/testutil"
)

var (
	hosts = aggregator.Table{
		Columns: []string{"IP", "Hostnames", "Open Ports", "Title", "Known CVEs"},
		Rows:    [][]string{{"10.0.0.1", "a - b", "80,443", "GARO EVSE Status", "None"}},
	}
	records = aggregator.Table{
		Columns: []string{"url", "company_name", "Access-Point Serial Number", `odd "name"`},
		Rows: [][]string{
			{"http://10.0.0.2", "", "", "x"},
			{"http://10.0.0.1", "GARO", "GA-1, rev 2", ""},
		},
	}
	run = exporter.RunInfo{ID: "run-1", StartedAt: time.Unix(0, 0), FinishedAt: time.Unix(60, 0), Matches: 3, Devices: 2}
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestExport_CSVOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := exporter.New(exporter.Config{Dir: dir}, &testutil.DummyLogger{})

	p, err := e.Export(context.Background(), run, hosts, records)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if p.Dir != filepath.Join(dir, "run-1") {
		t.Errorf("dir = %s", p.Dir)
	}
	if p.SQLite != "" {
		t.Errorf("sqlite written without being enabled: %s", p.SQLite)
	}
	if _, err := os.Stat(filepath.Join(p.Dir, exporter.SQLiteFile)); !os.IsNotExist(err) {
		t.Errorf("unexpected results.db: %v", err)
	}

	got := readCSV(t, p.Records)
	want := append([][]string{records.Columns}, records.Rows...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records csv = %v, want %v", got, want)
	}
	if got := readCSV(t, p.Hosts); !reflect.DeepEqual(got[0], hosts.Columns) || len(got) != 2 {
		t.Fatalf("hosts csv = %v", got)
	}
}

func TestExport_EmptyTableStillHasHeader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := exporter.New(exporter.Config{Dir: dir}, nil)

	empty := aggregator.Aggregate(nil, aggregator.Options{})
	p, err := e.Export(context.Background(), run, aggregator.HostTable(nil), empty)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := readCSV(t, p.Records); !reflect.DeepEqual(got, [][]string{{"url", "company_name"}}) {
		t.Fatalf("records csv = %v", got)
	}
}

func TestExport_SQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := exporter.New(exporter.Config{Dir: dir, SQLite: true}, nil)

	p, err := e.Export(context.Background(), run, hosts, records)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	db, err := sql.Open("sqlite", p.SQLite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var runID string
	var nRecords, nDevices int
	if err := db.QueryRow(`SELECT run_id, devices, records FROM run`).Scan(&runID, &nDevices, &nRecords); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if runID != "run-1" || nDevices != 2 || nRecords != 2 {
		t.Errorf("run row = %s %d %d", runID, nDevices, nRecords)
	}

	var serial string
	if err := db.QueryRow(`SELECT "Access-Point Serial Number" FROM records WHERE company_name = 'GARO'`).Scan(&serial); err != nil {
		t.Fatalf("query records: %v", err)
	}
	if serial != "GA-1, rev 2" {
		t.Errorf("serial = %q", serial)
	}

	var odd string
	if err := db.QueryRow(`SELECT "odd ""name""" FROM records WHERE url = 'http://10.0.0.2'`).Scan(&odd); err != nil {
		t.Fatalf("query quoted column: %v", err)
	}
	if odd != "x" {
		t.Errorf("odd = %q", odd)
	}

	var nHosts int
	if err := db.QueryRow(`SELECT COUNT(*) FROM hosts`).Scan(&nHosts); err != nil || nHosts != 1 {
		t.Fatalf("hosts count = %d, err %v", nHosts, err)
	}
}

func TestExport_RequiresRunID(t *testing.T) {
	t.Parallel()
	e := exporter.New(exporter.Config{Dir: t.TempDir()}, nil)
	if _, err := e.Export(context.Background(), exporter.RunInfo{}, hosts, records); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestWriteSQLite_CaseInsensitiveColumns(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "results.db")
	recs := aggregator.Table{
		Columns: []string{"url", "company_name", "Serial", "serial"},
		Rows:    [][]string{{"http://a", "X", "S1", "s1"}},
	}
	if err := exporter.WriteSQLite(context.Background(), path, run, hosts, recs); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var upper, lower string
	if err := db.QueryRow(`SELECT "Serial", "serial_2" FROM records`).Scan(&upper, &lower); err != nil {
		t.Fatalf("query: %v", err)
	}
	if upper != "S1" || lower != "s1" {
		t.Errorf("got %q %q", upper, lower)
	}

	// A second write replaces the previous database.
	if err := exporter.WriteSQLite(context.Background(), path, run, hosts, recs); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
}
