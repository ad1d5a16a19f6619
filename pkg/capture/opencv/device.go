// Package opencv reads frames from cameras, video files, network streams and
// GStreamer pipelines through OpenCV's VideoCapture.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/frame"
	"gocv.io/x/gocv"
)

// ErrReadFailed is returned when VideoCapture yields no frame.
var ErrReadFailed = errors.New("opencv: read failed")

// API selects the VideoCapture backend.
type API int

const (
	// APIAny lets OpenCV pick (V4L2, AVFoundation, MSMF, FFmpeg...).
	APIAny API = iota
	// APIGStreamer interprets the selector as a pipeline description.
	APIGStreamer
)

// Options configures Open.
type Options struct {
	// Selector is a device index ("0"), a path/URL, or a pipeline string.
	Selector string

	API API

	// Width, Height and Framerate are requested from the driver when
	// positive. Drivers may ignore them.
	Width     int
	Height    int
	Framerate int
}

// Device wraps a gocv.VideoCapture.
type Device struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	name   string
	logger *slog.Logger
}

// Open opens the capture source described by opts.
func Open(opts Options, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var source interface{} = opts.Selector
	if opts.API == APIAny {
		if idx, err := strconv.Atoi(opts.Selector); err == nil {
			source = idx
		}
	}

	apiPref := gocv.VideoCaptureAny
	name := "opencv"
	if opts.API == APIGStreamer {
		apiPref = gocv.VideoCaptureGstreamer
		name = "gstreamer"
	}

	vc, err := gocv.OpenVideoCaptureWithAPI(source, apiPref)
	if err != nil {
		return nil, fmt.Errorf("open video capture: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %q not opened", opts.Selector)
	}

	// Pipelines fix their own caps.
	if opts.API == APIAny {
		if opts.Width > 0 && opts.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
			vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
		}
		if opts.Framerate > 0 {
			vc.Set(gocv.VideoCaptureFPS, float64(opts.Framerate))
		}
	}

	logger.Info("video capture opened",
		"backend", name,
		"device", opts.Selector,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS),
	)

	return &Device{
		vc:     vc,
		mat:    gocv.NewMat(),
		name:   name,
		logger: logger,
	}, nil
}

// Read grabs the next frame. The driver read itself cannot be interrupted;
// ctx is checked before it starts.
func (d *Device) Read(ctx context.Context) (frame.Raw, error) {
	if err := ctx.Err(); err != nil {
		return frame.Raw{}, err
	}

	if ok := d.vc.Read(&d.mat); !ok {
		return frame.Raw{}, ErrReadFailed
	}
	if d.mat.Empty() {
		return frame.Raw{}, fmt.Errorf("%w: empty frame", ErrReadFailed)
	}

	// ToBytes copies, so the Mat can be reused for the next read.
	// Unsupported mat types surface as conversion errors.
	return frame.Raw{
		Width:  d.mat.Cols(),
		Height: d.mat.Rows(),
		Layout: layoutOf(d.mat.Type()),
		Data:   d.mat.ToBytes(),
	}, nil
}

func layoutOf(t gocv.MatType) frame.Layout {
	switch t {
	case gocv.MatTypeCV8UC3:
		return frame.LayoutBGR
	case gocv.MatTypeCV8UC4:
		return frame.LayoutBGRA
	case gocv.MatTypeCV8UC1:
		return frame.LayoutGray
	default:
		return frame.LayoutUnknown
	}
}

// Name returns "opencv" or "gstreamer".
func (d *Device) Name() string {
	return d.name
}

// Close releases the capture handle and the frame buffer.
func (d *Device) Close() error {
	d.mat.Close()
	return d.vc.Close()
}

// Ensure Device implements capture.Device.
var _ capture.Device = (*Device)(nil)
