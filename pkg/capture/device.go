// Package capture runs the frame-acquisition loop: a worker goroutine reads
// raw frames from a device, converts them to RGBA, and publishes them into a
// single-slot latest-wins Channel polled by the host.
package capture

import (
	"context"

	"github.com/teslashibe/go-webcam/pkg/frame"
)

// Device is an open video source.
//
// A Device is owned by exactly one Worker after Start and must not be used
// by anything else from then on.
type Device interface {
	// Read blocks until the next frame is available.
	// The returned buffer belongs to the caller. Backends that cannot
	// interrupt a driver read return once the in-flight frame completes.
	Read(ctx context.Context) (frame.Raw, error)

	// Name returns the backend name (e.g., "opencv", "screen", "mock").
	Name() string

	// Close releases the device handle.
	Close() error
}
