package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

// Config is the minimal set of options required for constructing a WebClient.
type Config struct {
	Client Client `yaml:"client"`

	// Timeout bounds a whole request including reading the body. Zero means 30s.
	Timeout time.Duration `yaml:"timeout"`

	UserAgent string `yaml:"user_agent"`
}
