// Package config provides configuration helpers for go-webcam commands.
// Settings come from an optional YAML file, then environment variables;
// command-line flags are applied last by the caller.
package config

import (
	"fmt"
	"os"

	"github.com/teslashibe/go-webcam/pkg/camera"
	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/preview"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvBackend     = "WEBCAM_BACKEND"
	EnvDevice      = "WEBCAM_DEVICE"
	EnvPreviewPort = "WEBCAM_PREVIEW_PORT"
	EnvLogLevel    = "LOG_LEVEL"
)

// File is the on-disk configuration.
type File struct {
	LogLevel string         `yaml:"log_level"`
	Camera   camera.Config  `yaml:"camera"`
	Capture  capture.Config `yaml:"capture"`
	Preview  preview.Config `yaml:"preview"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		LogLevel: "info",
		Camera:   camera.DefaultConfig(),
		Capture:  capture.DefaultConfig(),
		Preview:  preview.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (File, error) {
	return LoadFrom(Default(), path)
}

// LoadPreset is Load with the named camera preset as the base camera
// section, so selectors from the file and environment still apply on top.
// An empty preset is the same as Load.
func LoadPreset(path, preset string) (File, error) {
	base := Default()
	if preset != "" {
		p := camera.GetPreset(preset)
		if p == nil {
			return base, fmt.Errorf("unknown preset: %s", preset)
		}
		base.Camera = *p
	}
	return LoadFrom(base, path)
}

// LoadFrom reads path over base and applies the environment.
func LoadFrom(base File, path string) (File, error) {
	cfg := base

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides cfg with any set environment variables.
func ApplyEnv(cfg *File) {
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Camera.Backend = camera.Backend(v)
	}
	if v := os.Getenv(EnvDevice); v != "" {
		cfg.Camera.Device = v
	}
	if v := os.Getenv(EnvPreviewPort); v != "" {
		cfg.Preview.Port = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks every section.
func (f *File) Validate() error {
	if errs := f.Camera.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera: %v", errs)
	}
	if err := f.Capture.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := f.Preview.Validate(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
