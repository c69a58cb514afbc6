package enricher

import "time"

type Config struct {
	// Attempts is the number of host lookups per IP (default 3).
	Attempts int `yaml:"attempts"`

	// BackoffMin and BackoffMax bound the random wait after a rate-limit
	// answer (default 2s and 8s).
	BackoffMin time.Duration `yaml:"backoff_min"`
	BackoffMax time.Duration `yaml:"backoff_max"`

	// ErrorBudget stops all further lookups once this many non rate-limit
	// failures were seen. Zero means unlimited.
	ErrorBudget int `yaml:"error_budget"`

	// Concurrency bounds EnrichAll (default 9).
	Concurrency int `yaml:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Attempts:   3,
		BackoffMin: 2 * time.Second,
		BackoffMax: 8 * time.Second,
	}
}
