package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/evscout/internal/admission"
	"github.com/raysh454/evscout/internal/cli"
	"github.com/raysh454/evscout/internal/enricher"
	"github.com/raysh454/evscout/internal/enumerator"
	"github.com/raysh454/evscout/internal/exporter"
	"github.com/raysh454/evscout/internal/fetcher"
	"github.com/raysh454/evscout/internal/shodan"
	"github.com/raysh454/evscout/internal/utils"
	"github.com/raysh454/evscout/internal/webclient"
)

// DefaultAPIKeyEnv is the environment variable holding the Shodan API key.
const DefaultAPIKeyEnv = "SHODAN_API_KEY"

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the whole runtime configuration of one run. It is loaded from
// YAML; the API key only ever comes from the environment.
type Config struct {
	// Titles are searched as title:"..." queries.
	Titles []string `yaml:"titles"`

	// VendorTitles maps extra advertised titles to a vendor (garo, ensto).
	VendorTitles map[string]string `yaml:"vendor_titles"`

	// DeviceURLTemplate builds a device root URL; "{ip}" is replaced.
	DeviceURLTemplate string `yaml:"device_url_template"`

	// Concurrency is the admission gate capacity for enrichment and harvest.
	Concurrency int `yaml:"concurrency"`

	// NormalizeColumns lower-cases output columns and replaces spaces and
	// dashes with underscores.
	NormalizeColumns bool `yaml:"normalize_columns"`

	// EnstoRoleLabels are the link texts of Ensto unit pages.
	EnstoRoleLabels []string `yaml:"ensto_role_labels"`

	APIKeyEnv string `yaml:"api_key_env"`
	DotEnv    string `yaml:"dotenv"`

	Log       LogConfig        `yaml:"log"`
	Shodan    shodan.Config    `yaml:"shodan"`
	Enricher  enricher.Config  `yaml:"enricher"`
	Fetcher   fetcher.Config   `yaml:"fetcher"`
	WebClient webclient.Config `yaml:"webclient"`
	Output    exporter.Config  `yaml:"output"`
}

// DefaultConfig returns a Config populated with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Titles:            append([]string(nil), enumerator.DefaultTitles...),
		DeviceURLTemplate: utils.DefaultDeviceURLTemplate,
		Concurrency:       admission.DefaultCapacity,
		APIKeyEnv:         DefaultAPIKeyEnv,
		DotEnv:            ".env",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Shodan: shodan.Config{
			BaseURL:           shodan.DefaultBaseURL,
			RequestsPerSecond: 1,
			Burst:             1,
		},
		Enricher: enricher.DefaultConfig(),
		Fetcher:  fetcher.DefaultConfig(),
		WebClient: webclient.Config{
			Client:  webclient.ClientNetHTTP,
			Timeout: 30 * time.Second,
		},
		Output: exporter.Config{
			Dir: "results",
		},
	}
}

// LoadConfig reads path over DefaultConfig. An empty path or a missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors that would make a run meaningless.
func (c *Config) Validate() error {
	if len(c.Titles) == 0 {
		return errors.New("config: at least one title is required")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config: concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.DeviceURLTemplate != "" && !strings.Contains(c.DeviceURLTemplate, "{ip}") {
		return fmt.Errorf("config: device_url_template %q has no {ip} placeholder", c.DeviceURLTemplate)
	}
	if c.Enricher.BackoffMax > 0 && c.Enricher.BackoffMax < c.Enricher.BackoffMin {
		return fmt.Errorf("config: enricher backoff_max %s is below backoff_min %s", c.Enricher.BackoffMax, c.Enricher.BackoffMin)
	}
	return nil
}

// APIKey returns the Shodan API key from the environment.
func (c *Config) APIKey() string {
	env := c.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	return strings.TrimSpace(os.Getenv(env))
}

// ApplyArgs overrides config values with explicitly given CLI flags.
func (c *Config) ApplyArgs(args *cli.CLIArgs) {
	if args == nil {
		return
	}
	if args.OutputDir != "" {
		c.Output.Dir = args.OutputDir
	}
	if args.Concurrency > 0 {
		c.Concurrency = args.Concurrency
	}
	if args.SQLite != nil {
		c.Output.SQLite = *args.SQLite
	}
	if args.LogLevel != "" {
		c.Log.Level = args.LogLevel
	}
}
