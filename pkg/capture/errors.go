package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrSourceClosed is returned by channel queries after the worker stopped.
	// It is terminal: callers should give up on the feed, not retry.
	ErrSourceClosed = errors.New("capture: source closed")

	// ErrDeviceOpen matches every *DeviceOpenError.
	ErrDeviceOpen = errors.New("capture: device open failed")

	// ErrRead matches every *ReadError.
	ErrRead = errors.New("capture: device read failed")
)

// DeviceOpenError reports a capture device that could not be opened.
type DeviceOpenError struct {
	// Backend is the capture strategy that was tried.
	Backend string

	// Device is the selector passed to the backend (index or pipeline).
	Device string

	Err error
}

// Error implements the error interface.
func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("capture [%s]: open %q: %v", e.Backend, e.Device, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceOpenError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDeviceOpen.
func (e *DeviceOpenError) Is(target error) bool {
	return target == ErrDeviceOpen
}

// ReadError is the terminal error of a worker that gave up reading.
type ReadError struct {
	// Consecutive is the number of failed reads in a row.
	Consecutive int

	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("capture: %d consecutive read failures, last: %v", e.Consecutive, e.Err)
}

// Unwrap returns the last read error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRead.
func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}
