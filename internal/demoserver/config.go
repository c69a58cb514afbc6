package demoserver

// Config holds configuration for the demo server.
type Config struct {
	// Port is the port on which the demo server listens.
	Port int

	// APIKey is the key the fake search API accepts (default "demo").
	APIKey string

	// Fleet is the simulated set of devices (default DefaultFleet()).
	Fleet []Device
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:   9999,
		APIKey: "demo",
		Fleet:  DefaultFleet(),
	}
}
