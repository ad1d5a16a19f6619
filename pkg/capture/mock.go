package capture

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-webcam/pkg/frame"
)

type mockRead struct {
	raw frame.Raw
	err error
}

// MockDevice is a synthetic capture device for tests and hardware-free runs.
//
// By default it generates a moving BGR test pattern paced by its interval.
// With WithManualFeed it instead returns exactly what is pushed via Push and
// Fail, blocking in Read until something arrives.
type MockDevice struct {
	width    int
	height   int
	interval time.Duration
	manual   bool

	feed      chan mockRead
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	reads atomic.Int64
	tick  int
}

// MockDeviceOption configures a MockDevice.
type MockDeviceOption func(*MockDevice)

// WithInterval sets the pacing of generated frames.
func WithInterval(d time.Duration) MockDeviceOption {
	return func(m *MockDevice) {
		m.interval = d
	}
}

// WithManualFeed makes Read return only pushed frames and errors.
func WithManualFeed() MockDeviceOption {
	return func(m *MockDevice) {
		m.manual = true
	}
}

// NewMockDevice creates a mock device producing width x height frames.
func NewMockDevice(width, height int, opts ...MockDeviceOption) *MockDevice {
	m := &MockDevice{
		width:    width,
		height:   height,
		interval: 33 * time.Millisecond,
		feed:     make(chan mockRead, 64),
		closeCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Push queues a raw frame for a manual-feed device.
func (m *MockDevice) Push(raw frame.Raw) {
	m.feed <- mockRead{raw: raw}
}

// PushBGR queues a well-formed BGR frame filled with the given pixel.
func (m *MockDevice) PushBGR(b, g, r byte) {
	data := make([]byte, m.width*m.height*3)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = b, g, r
	}
	m.Push(frame.Raw{Width: m.width, Height: m.height, Layout: frame.LayoutBGR, Data: data})
}

// Fail queues a read error for a manual-feed device.
func (m *MockDevice) Fail(err error) {
	m.feed <- mockRead{err: err}
}

// Read returns the next frame.
func (m *MockDevice) Read(ctx context.Context) (frame.Raw, error) {
	if m.closed.Load() {
		return frame.Raw{}, io.ErrClosedPipe
	}

	if m.manual {
		select {
		case <-ctx.Done():
			return frame.Raw{}, ctx.Err()
		case <-m.closeCh:
			return frame.Raw{}, io.ErrClosedPipe
		case r := <-m.feed:
			m.reads.Add(1)
			return r.raw, r.err
		}
	}

	if m.interval > 0 {
		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return frame.Raw{}, ctx.Err()
		case <-m.closeCh:
			timer.Stop()
			return frame.Raw{}, io.ErrClosedPipe
		case <-timer.C:
		}
	}

	m.reads.Add(1)
	return m.generate(), nil
}

// generate draws a BGR gradient that shifts every frame.
func (m *MockDevice) generate() frame.Raw {
	m.tick++
	data := make([]byte, m.width*m.height*3)
	i := 0
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			data[i] = byte(x + m.tick)
			data[i+1] = byte(y + m.tick)
			data[i+2] = byte(m.tick * 3)
			i += 3
		}
	}
	return frame.Raw{Width: m.width, Height: m.height, Layout: frame.LayoutBGR, Data: data}
}

// Reads returns the number of completed reads.
func (m *MockDevice) Reads() int64 {
	return m.reads.Load()
}

// IsClosed reports whether Close was called.
func (m *MockDevice) IsClosed() bool {
	return m.closed.Load()
}

// Name returns "mock".
func (m *MockDevice) Name() string {
	return "mock"
}

// Close releases the device and unblocks a pending Read.
func (m *MockDevice) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil
}

// Ensure MockDevice implements Device.
var _ Device = (*MockDevice)(nil)
