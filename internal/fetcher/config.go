package fetcher

import "time"

type Config struct {
	// MaxRetries is the number of attempts per URL. Zero means 2.
	MaxRetries int `yaml:"max_retries"`

	// Timeout bounds each attempt. Zero means 20s.
	Timeout time.Duration `yaml:"timeout"`

	// RetryDelay is waited between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultConfig mirrors the device HTTP boundary: two attempts of 20s each.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		Timeout:    20 * time.Second,
	}
}
