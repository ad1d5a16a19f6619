// Package preview is the host side of the capture pipeline: a tick loop
// that polls the latest frame the way a render loop would, and a small
// dashboard serving what it presents.
package preview

import "fmt"

// Config holds preview settings.
type Config struct {
	// Port for the dashboard. Empty disables the HTTP server.
	Port string `yaml:"port" json:"port"`

	// TickRate is the host update rate in Hz.
	TickRate int `yaml:"tick_rate" json:"tick_rate"`

	// JPEGQuality is used for snapshots and the websocket stream (1-100).
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:        "8080",
		TickRate:    60,
		JPEGQuality: 80,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.TickRate < 1 || c.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be between 1 and 1000, got %d", c.TickRate)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	return nil
}
