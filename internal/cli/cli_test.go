package cli_test

import (
	"testing"

	"github.com/raysh454/evscout/internal/cli"
)

func TestParseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, a *cli.CLIArgs)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, a *cli.CLIArgs) {
				if a.ConfigPath != "evscout.yaml" || a.OutputDir != "" || a.Concurrency != 0 || a.SQLite != nil || a.LogLevel != "" {
					t.Errorf("unexpected defaults %+v", a)
				}
			},
		},
		{
			name: "all flags",
			args: []string{"-config", "x.yaml", "-out", "/tmp/r", "-concurrency", "4", "-sqlite", "-log-level", "DEBUG"},
			check: func(t *testing.T, a *cli.CLIArgs) {
				if a.ConfigPath != "x.yaml" || a.OutputDir != "/tmp/r" || a.Concurrency != 4 || a.LogLevel != "debug" {
					t.Errorf("unexpected args %+v", a)
				}
				if a.SQLite == nil || !*a.SQLite {
					t.Errorf("sqlite = %v", a.SQLite)
				}
			},
		},
		{
			name: "explicit sqlite=false",
			args: []string{"-sqlite=false"},
			check: func(t *testing.T, a *cli.CLIArgs) {
				if a.SQLite == nil || *a.SQLite {
					t.Errorf("sqlite = %v", a.SQLite)
				}
			},
		},
		{name: "negative concurrency", args: []string{"-concurrency", "-1"}, wantErr: true},
		{name: "bad log level", args: []string{"-log-level", "loud"}, wantErr: true},
		{name: "unknown flag", args: []string{"-target", "x"}, wantErr: true},
		{name: "positional", args: []string{"extra"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := cli.ParseArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", a)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			tt.check(t, a)
		})
	}
}
