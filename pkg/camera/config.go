// Package camera provides runtime-configurable capture source settings.
// A Config selects one capture backend and the device it opens; it is
// resolved once when the capture worker starts.
package camera

import "strconv"

// Backend is the capture-source strategy.
type Backend string

const (
	// BackendAuto selects the best available backend (opencv).
	BackendAuto Backend = "auto"
	// BackendOpenCV opens a device index or path through OpenCV.
	BackendOpenCV Backend = "opencv"
	// BackendGStreamer opens a GStreamer pipeline description through OpenCV.
	BackendGStreamer Backend = "gstreamer"
	// BackendScreen captures a desktop display.
	BackendScreen Backend = "screen"
	// BackendMock generates a synthetic test pattern.
	BackendMock Backend = "mock"
)

// Backends returns every selectable backend.
func Backends() []Backend {
	return []Backend{BackendAuto, BackendOpenCV, BackendGStreamer, BackendScreen, BackendMock}
}

// Config holds all capture source parameters.
type Config struct {
	// Backend selects the capture strategy.
	Backend Backend `json:"backend" yaml:"backend"`

	// Device is the backend-specific selector, passed through unmodified.
	// Examples:
	//   - opencv: "0", "/dev/video2", "rtsp://..."
	//   - gstreamer: a full pipeline ending in appsink; empty builds one from Pipeline
	//   - screen: region "x,y,width,height", "" for the whole screen
	//   - mock: ignored
	Device string `json:"device" yaml:"device"`

	// === Resolution ===
	// Width and Height request a frame size from the device. 0 keeps the
	// driver default.
	Width     int `json:"width" yaml:"width"`
	Height    int `json:"height" yaml:"height"`
	Framerate int `json:"framerate" yaml:"framerate"` // Target FPS

	// Pipeline parameters for a generated GStreamer pipeline.
	Pipeline Pipeline `json:"pipeline" yaml:"pipeline"`
}

// Capture limits.
const (
	MaxWidth     = 7680
	MaxHeight    = 4320
	MaxFramerate = 240
)

// DefaultConfig returns the default configuration: first camera, driver
// resolution, 30 FPS.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendAuto,
		Device:    "0",
		Width:     0,
		Height:    0,
		Framerate: 30,
		Pipeline:  DefaultPipeline(),
	}
}

// DeviceIndex returns the selector as a device index, if it is one.
func (c *Config) DeviceIndex() (int, bool) {
	idx, err := strconv.Atoi(c.Device)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	validBackend := false
	for _, b := range Backends() {
		if c.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		errors = append(errors, "backend must be auto, opencv, gstreamer, screen, or mock")
	}

	// Resolution
	if c.Width < 0 || c.Width > MaxWidth {
		errors = append(errors, "width must be 0 (driver default) or up to 7680")
	}
	if c.Height < 0 || c.Height > MaxHeight {
		errors = append(errors, "height must be 0 (driver default) or up to 4320")
	}
	if (c.Width == 0) != (c.Height == 0) {
		errors = append(errors, "width and height must be set together")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 240")
	}

	if c.Backend == BackendGStreamer {
		if _, numeric := c.DeviceIndex(); c.Device == "" || numeric {
			errors = append(errors, c.Pipeline.Validate()...)
		}
	}

	return errors
}

// Capabilities describes the selectable backends and limits.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"backends":      Backends(),
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"presets":       PresetNames(),
		"output_format": "rgba8",
	}
}
