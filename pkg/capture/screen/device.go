// Package screen captures a desktop display as a frame source.
package screen

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/frame"
	"github.com/vova616/screenshot"
)

// grabber abstracts the screenshot calls so pacing and copying can be
// tested without a display.
type grabber func(rect image.Rectangle) (*image.RGBA, error)

// Device grabs a screen region at a fixed rate.
type Device struct {
	rect     image.Rectangle
	interval time.Duration
	grab     grabber
	last     time.Time
	logger   *slog.Logger
}

// Open prepares a screen capture. region is "" for the whole screen or
// "x,y,width,height". framerate paces Read; screenshots are not vsynced.
func Open(region string, framerate int, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("query screen: %w", err)
	}

	if region != "" {
		r, err := ParseRegion(region)
		if err != nil {
			return nil, err
		}
		if !r.In(rect) {
			return nil, fmt.Errorf("region %v outside screen %v", r, rect)
		}
		rect = r
	}

	logger.Info("screen capture opened",
		"region", rect.String(),
		"framerate", framerate,
	)

	return newDevice(rect, framerate, screenshot.CaptureRect, logger), nil
}

func newDevice(rect image.Rectangle, framerate int, grab grabber, logger *slog.Logger) *Device {
	var interval time.Duration
	if framerate > 0 {
		interval = time.Second / time.Duration(framerate)
	}
	return &Device{
		rect:     rect,
		interval: interval,
		grab:     grab,
		logger:   logger,
	}
}

// ParseRegion parses "x,y,width,height".
func ParseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q: want x,y,width,height", s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("region %q: size must be positive", s)
	}

	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// Read waits for the next frame slot and grabs the region.
func (d *Device) Read(ctx context.Context) (frame.Raw, error) {
	if d.interval > 0 && !d.last.IsZero() {
		if wait := d.interval - time.Since(d.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return frame.Raw{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	d.last = time.Now()

	img, err := d.grab(d.rect)
	if err != nil {
		return frame.Raw{}, fmt.Errorf("screen grab: %w", err)
	}

	return toRaw(img), nil
}

// toRaw copies img into a tightly packed buffer. Screen grabs carry no
// meaningful alpha, so every pixel is made opaque.
func toRaw(img *image.RGBA) frame.Raw {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]byte, w*h*4)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		dst := data[y*w*4 : (y+1)*w*4]
		copy(dst, row)
		for i := 3; i < len(dst); i += 4 {
			dst[i] = 0xFF
		}
	}

	return frame.Raw{Width: w, Height: h, Layout: frame.LayoutRGBA, Data: data}
}

// Name returns "screen".
func (d *Device) Name() string {
	return "screen"
}

// Close is a no-op; screenshots hold no handle between grabs.
func (d *Device) Close() error {
	return nil
}

// Ensure Device implements capture.Device.
var _ capture.Device = (*Device)(nil)
