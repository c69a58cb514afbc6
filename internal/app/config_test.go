package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/evscout/internal/app"
	"github.com/raysh454/evscout/internal/cli"
	"github.com/raysh454/evscout/internal/enumerator"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evscout.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Titles) != len(enumerator.DefaultTitles) {
		t.Errorf("titles = %d, want %d", len(cfg.Titles), len(enumerator.DefaultTitles))
	}
	if cfg.Concurrency != 9 || cfg.Output.Dir != "results" || cfg.APIKeyEnv != app.DefaultAPIKeyEnv {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Enricher.Attempts != 3 || cfg.Enricher.BackoffMin != 2*time.Second {
		t.Errorf("enricher defaults = %+v", cfg.Enricher)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
titles: ["GARO EVSE Status"]
vendor_titles:
  "EVSE Status": garo
device_url_template: "https://{ip}:8443"
concurrency: 4
normalize_columns: true
ensto_role_labels: [Primary, Secondary]
shodan:
  base_url: http://localhost:8080
  requests_per_second: 5
enricher:
  backoff_min: 10ms
  backoff_max: 20ms
output:
  output_dir: out
  sqlite: true
`)
	cfg, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Titles) != 1 || cfg.VendorTitles["EVSE Status"] != "garo" {
		t.Errorf("titles = %v vendor_titles = %v", cfg.Titles, cfg.VendorTitles)
	}
	if cfg.DeviceURLTemplate != "https://{ip}:8443" || cfg.Concurrency != 4 || !cfg.NormalizeColumns {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Shodan.BaseURL != "http://localhost:8080" || cfg.Shodan.RequestsPerSecond != 5 {
		t.Errorf("shodan = %+v", cfg.Shodan)
	}
	if cfg.Enricher.BackoffMin != 10*time.Millisecond || cfg.Enricher.Attempts != 3 {
		t.Errorf("enricher = %+v", cfg.Enricher)
	}
	if cfg.Output.Dir != "out" || !cfg.Output.SQLite {
		t.Errorf("output = %+v", cfg.Output)
	}
	if len(cfg.EnstoRoleLabels) != 2 {
		t.Errorf("role labels = %v", cfg.EnstoRoleLabels)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no titles", "titles: []", "title"},
		{"negative concurrency", "concurrency: -1", "concurrency"},
		{"template without ip", `device_url_template: "http://host"`, "{ip}"},
		{"backoff bounds", "enricher: {backoff_min: 2s, backoff_max: 1s}", "backoff"},
		{"bad yaml", "titles: [", "parse config"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := app.LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApplyArgs(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Output.SQLite = true

	cfg.ApplyArgs(&cli.CLIArgs{})
	if cfg.Output.Dir != "results" || cfg.Concurrency != 9 || !cfg.Output.SQLite {
		t.Fatalf("empty args changed config: %+v", cfg)
	}

	off := false
	cfg.ApplyArgs(&cli.CLIArgs{OutputDir: "x", Concurrency: 3, SQLite: &off, LogLevel: "debug"})
	if cfg.Output.Dir != "x" || cfg.Concurrency != 3 || cfg.Output.SQLite || cfg.Log.Level != "debug" {
		t.Fatalf("args not applied: %+v", cfg)
	}
}

func TestAPIKey_FromEnv(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.APIKeyEnv = "EVSCOUT_TEST_API_KEY"
	t.Setenv("EVSCOUT_TEST_API_KEY", "  secret \n")
	if got := cfg.APIKey(); got != "secret" {
		t.Fatalf("APIKey = %q", got)
	}
}
