package app

import (
	"fmt"
	"strings"

	"github.com/raysh454/evscout/internal/crawler"
	"github.com/raysh454/evscout/internal/enricher"
	"github.com/raysh454/evscout/internal/enumerator"
	"github.com/raysh454/evscout/internal/exporter"
	"github.com/raysh454/evscout/internal/extractor"
	"github.com/raysh454/evscout/internal/fetcher"
	"github.com/raysh454/evscout/internal/harvester"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/shodan"
	"github.com/raysh454/evscout/internal/webclient"
)

// Components are the wired collaborators of one pipeline.
type Components struct {
	WebClient  webclient.WebClient
	Shodan     *shodan.Client
	Enumerator enumerator.Enumerator
	Enricher   *enricher.Enricher
	Registry   *extractor.Registry
	Fetcher    *fetcher.Fetcher
	Crawler    *crawler.Crawler
	Harvester  *harvester.Harvester
	Exporter   *exporter.Exporter
}

// NewComponents builds every collaborator from cfg. apiKey authenticates
// the search API.
func NewComponents(cfg *Config, apiKey string, logger logging.Logger) (*Components, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	wc, err := webclient.NewWebClient(cfg.WebClient, logger)
	if err != nil {
		return nil, fmt.Errorf("new webclient: %w", err)
	}

	shodanCfg := cfg.Shodan
	shodanCfg.APIKey = apiKey
	sc, err := shodan.New(shodanCfg, wc, logger)
	if err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("new shodan client: %w", err)
	}

	registry := extractor.NewRegistry()
	registry.Register(extractor.NewGaro(logger), "GARO EVSE Status")
	registry.Register(extractor.NewEnsto(logger, cfg.EnstoRoleLabels...), "Charging station interface")
	for title, vendor := range cfg.VendorTitles {
		if err := registry.AddTitle(title, model.Vendor(strings.ToLower(strings.TrimSpace(vendor)))); err != nil {
			_ = wc.Close()
			return nil, fmt.Errorf("vendor_titles: %w", err)
		}
	}

	f, err := fetcher.New(cfg.Fetcher, wc, logger)
	if err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("new fetcher: %w", err)
	}

	enrichCfg := cfg.Enricher
	if enrichCfg.Concurrency == 0 {
		enrichCfg.Concurrency = cfg.Concurrency
	}

	c := crawler.New(f, registry, logger)
	return &Components{
		WebClient:  wc,
		Shodan:     sc,
		Enumerator: enumerator.NewTitleEnumerator(sc, logger),
		Enricher:   enricher.New(enrichCfg, sc, logger),
		Registry:   registry,
		Fetcher:    f,
		Crawler:    c,
		Harvester: harvester.New(harvester.Config{
			Concurrency:       cfg.Concurrency,
			DeviceURLTemplate: cfg.DeviceURLTemplate,
		}, c, logger),
		Exporter: exporter.New(cfg.Output, logger),
	}, nil
}

// Close releases the shared web client.
func (c *Components) Close() error {
	if c == nil || c.WebClient == nil {
		return nil
	}
	return c.WebClient.Close()
}
