// Package backend resolves a camera.Config to a capture device and starts
// the capture worker on it.
//
// Supported backends:
//   - opencv - V4L2/AVFoundation/MSMF cameras, files and streams via gocv
//   - gstreamer - pipeline descriptions via gocv's GStreamer backend
//   - screen - desktop capture
//   - mock - synthetic frames for CI and hardware-free runs
//
// The backend is chosen once, at startup, from configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-webcam/pkg/camera"
	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/capture/opencv"
	"github.com/teslashibe/go-webcam/pkg/capture/screen"
)

// Open creates the capture device described by cfg. Any failure is returned
// as a *capture.DeviceOpenError.
func Open(cfg camera.Config, logger *slog.Logger) (capture.Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := Resolve(cfg.Backend)
	selector := cfg.Device
	if backend == camera.BackendGStreamer {
		selector = cfg.PipelineString()
	}

	openErr := func(err error) error {
		return &capture.DeviceOpenError{Backend: string(backend), Device: selector, Err: err}
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, openErr(fmt.Errorf("invalid config: %v", errs))
	}

	logger.Info("opening capture device",
		"backend", backend,
		"device", selector,
		"width", cfg.Width,
		"height", cfg.Height,
		"framerate", cfg.Framerate,
	)

	var (
		dev capture.Device
		err error
	)

	switch backend {
	case camera.BackendMock:
		w, h := cfg.Width, cfg.Height
		if w == 0 || h == 0 {
			w, h = 320, 240
		}
		dev = capture.NewMockDevice(w, h,
			capture.WithInterval(time.Second/time.Duration(cfg.Framerate)))
	case camera.BackendOpenCV:
		dev, err = opencv.Open(opencv.Options{
			Selector:  selector,
			API:       opencv.APIAny,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Framerate: cfg.Framerate,
		}, logger)
	case camera.BackendGStreamer:
		dev, err = opencv.Open(opencv.Options{
			Selector: selector,
			API:      opencv.APIGStreamer,
		}, logger)
	case camera.BackendScreen:
		dev, err = screen.Open(selector, cfg.Framerate, logger)
	default:
		err = fmt.Errorf("unsupported backend: %s", backend)
	}

	if err != nil {
		return nil, openErr(err)
	}
	return dev, nil
}

// Start opens the device described by camCfg and starts a worker on it.
// A device that cannot be opened is reported as *capture.DeviceOpenError;
// the caller should abandon the video feed.
func Start(ctx context.Context, camCfg camera.Config, capCfg capture.Config, logger *slog.Logger) (*capture.Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dev, err := Open(camCfg, logger)
	if err != nil {
		return nil, err
	}

	return capture.Start(ctx, dev, capCfg, logger)
}

// Resolve maps BackendAuto to the concrete default backend.
func Resolve(b camera.Backend) camera.Backend {
	if b == camera.BackendAuto || b == "" {
		return camera.BackendOpenCV
	}
	return b
}
