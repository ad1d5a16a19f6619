// Webcam - capture frames from a camera and present them at a fixed tick rate
//
// A capture worker reads the device on its own goroutine and hands converted
// RGBA frames to the presenter through a latest-wins channel. The optional
// preview dashboard serves the presented frame over HTTP and websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-webcam/internal/config"
	"github.com/teslashibe/go-webcam/internal/log"
	"github.com/teslashibe/go-webcam/pkg/camera"
	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/capture/backend"
	"github.com/teslashibe/go-webcam/pkg/hub"
	"github.com/teslashibe/go-webcam/pkg/preview"
)

func main() {
	cfg, cam, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	// The worker gets its own context; shutdown goes through Stop so the
	// channel is closed before the device is released.
	worker, err := backend.Start(context.Background(), cam.GetConfig(), cfg.Capture, logger)
	if err != nil {
		var openErr *capture.DeviceOpenError
		if errors.As(err, &openErr) {
			logger.Error("failed to open capture device",
				"backend", openErr.Backend,
				"device", openErr.Device,
				"error", openErr.Err,
			)
		} else {
			logger.Error("failed to start capture", "error", err)
		}
		os.Exit(1)
	}

	frames := hub.New("frames", logger)
	presenter := preview.NewPresenter(worker.Frames(), cfg.Preview, logger, preview.WithHub(frames))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := presenter.Run(ctx)
		if cfg.Preview.Port == "" {
			// Nothing left to show once the feed is gone.
			cancel()
		}
		return err
	})

	if cfg.Preview.Port != "" {
		server := preview.NewServer(cfg.Preview, worker, presenter, cam, frames, logger)
		logger.Info("preview dashboard", "url", "http://localhost:"+cfg.Preview.Port)
		g.Go(func() error {
			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("preview server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return watchWorker(ctx, worker, logger)
	})

	err = g.Wait()

	st := worker.Stats()
	logger.Info("capture finished",
		"captured", st.FramesCaptured,
		"published", st.FramesPublished,
		"dropped", st.FramesDropped,
		"conversion_errors", st.ConversionErrors,
		"read_errors", st.ReadErrors,
	)

	if err != nil {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
}

// watchWorker stops the worker once ctx is done. A worker that gave up on
// its device is reported but left in place until then, so the dashboard keeps
// the last frame; its terminal error becomes the result.
func watchWorker(ctx context.Context, w *capture.Worker, logger *slog.Logger) error {
	select {
	case <-w.Done():
		if err := w.Err(); err != nil {
			logger.Error("capture stopped", "error", err)
		}
		<-ctx.Done()
	case <-ctx.Done():
	}

	w.Stop()
	return w.Err()
}

// parseFlags loads the config file and applies command line overrides.
func parseFlags() (config.File, *camera.Manager, error) {
	configPath := flag.String("config", "", "YAML config file")
	backendName := flag.String("backend", "", "Capture backend: auto, opencv, gstreamer, screen, mock")
	device := flag.String("device", "", "Device index, path, URL or pipeline (backend specific)")
	preset := flag.String("preset", "", "Base camera preset, overridden by the config file, env and flags: "+fmt.Sprint(camera.PresetNames()))
	width := flag.Int("width", 0, "Requested frame width")
	height := flag.Int("height", 0, "Requested frame height")
	fps := flag.Int("fps", 0, "Requested capture framerate")
	tick := flag.Int("tick", 0, "Presenter tick rate in Hz")
	port := flag.String("port", "", "Preview dashboard port (\"off\" disables)")
	maxFailures := flag.Int("max-failures", 0, "Consecutive read failures before capture gives up")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.LoadPreset(*configPath, *preset)
	if err != nil {
		return cfg, nil, err
	}

	params := map[string]interface{}{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			params["backend"] = *backendName
		case "device":
			params["device"] = *device
		case "width":
			params["width"] = *width
		case "height":
			params["height"] = *height
		case "fps":
			params["framerate"] = *fps
		case "tick":
			cfg.Preview.TickRate = *tick
		case "port":
			cfg.Preview.Port = *port
			if *port == "off" {
				cfg.Preview.Port = ""
			}
		case "max-failures":
			cfg.Capture.Retry.MaxConsecutiveFailures = *maxFailures
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	cam := camera.NewManager()
	if err := cam.SetConfig(cfg.Camera); err != nil {
		return cfg, nil, err
	}
	if len(params) > 0 {
		if err := cam.UpdateConfig(params); err != nil {
			return cfg, nil, err
		}
	}
	cfg.Camera = cam.GetConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, cam, nil
}
