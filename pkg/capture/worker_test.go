package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-webcam/pkg/frame"
)

func fastConfig(maxFailures int) Config {
	cfg := DefaultConfig()
	cfg.Retry.MaxConsecutiveFailures = maxFailures
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func waitFrame(t *testing.T, w *Worker) frame.Converted {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := w.Frames().GetLatestBlocking(ctx)
	if err != nil {
		t.Fatalf("GetLatestBlocking failed: %v", err)
	}
	return f
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("Worker did not terminate")
	}
}

func TestWorker_PublishesConvertedFrames(t *testing.T) {
	dev := NewMockDevice(2, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dev.Push(frame.Raw{Width: 2, Height: 1, Layout: frame.LayoutBGR, Data: []byte{10, 20, 30, 1, 2, 3}})

	f := waitFrame(t, w)
	want := []byte{30, 20, 10, 255, 3, 2, 1, 255}
	if !bytes.Equal(f.Pix, want) {
		t.Errorf("Expected %v, got %v", want, f.Pix)
	}
	if f.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", f.Seq)
	}
}

func TestWorker_BlockingGetBeforeFirstFrame(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	result := make(chan frame.Converted, 1)
	go func() {
		f, err := w.Frames().GetLatestBlocking(context.Background())
		if err == nil {
			result <- f
		}
	}()

	select {
	case <-result:
		t.Fatal("Blocking get returned before the first frame")
	case <-time.After(30 * time.Millisecond):
	}

	dev.PushBGR(1, 2, 3)

	select {
	case f := <-result:
		if !bytes.Equal(f.Pix, []byte{3, 2, 1, 255}) {
			t.Errorf("Unexpected pixel %v", f.Pix)
		}
	case <-time.After(time.Second):
		t.Fatal("Blocking get never returned")
	}
}

func TestWorker_MalformedFrameKeepsPending(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dev.PushBGR(10, 20, 30)
	dev.Push(frame.Raw{Width: 1, Height: 1, Layout: frame.LayoutBGR, Data: []byte{1, 2, 3, 4}})
	dev.PushBGR(40, 50, 60) // sentinel: once read, the bad frame was processed

	deadline := time.Now().Add(time.Second)
	for dev.Reads() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// The sentinel read is counted before it is published.
	for w.Stats().FramesPublished < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	stats := w.Stats()
	if stats.ConversionErrors != 1 {
		t.Errorf("Expected 1 conversion error, got %d", stats.ConversionErrors)
	}
	if stats.FramesPublished != 2 {
		t.Fatalf("Expected 2 published frames, got %d", stats.FramesPublished)
	}
	if !stats.Running {
		t.Error("Worker should keep running after a malformed frame")
	}

	f, ok, err := w.Frames().TryGetLatest()
	if err != nil || !ok {
		t.Fatalf("Expected pending frame, ok=%v err=%v", ok, err)
	}
	if f.Seq != 2 || !bytes.Equal(f.Pix, []byte{60, 50, 40, 255}) {
		t.Errorf("Unexpected frame seq=%d pix=%v", f.Seq, f.Pix)
	}
}

func TestWorker_MalformedFrameLeavesPreviousPending(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dev.PushBGR(10, 20, 30)
	dev.Push(frame.Raw{Width: 1, Height: 1, Layout: frame.LayoutBGR, Data: []byte{1, 2, 3, 4}})

	deadline := time.Now().Add(time.Second)
	for w.Stats().ConversionErrors < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	f, ok, err := w.Frames().TryGetLatest()
	if err != nil || !ok {
		t.Fatalf("Expected previous frame to stay pending, ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(f.Pix, []byte{30, 20, 10, 255}) {
		t.Errorf("Unexpected pixel %v", f.Pix)
	}
}

func TestWorker_RetriesTransientReadErrors(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dev.Fail(errors.New("usb hiccup"))
	dev.Fail(errors.New("usb hiccup"))
	dev.PushBGR(1, 1, 1)

	f := waitFrame(t, w)
	if f.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", f.Seq)
	}

	stats := w.Stats()
	if stats.ReadErrors != 2 {
		t.Errorf("Expected 2 read errors, got %d", stats.ReadErrors)
	}
	if stats.ConsecutiveFailures != 0 {
		t.Errorf("Expected consecutive failures reset, got %d", stats.ConsecutiveFailures)
	}
}

func TestWorker_GivesUpAfterConsecutiveFailures(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cause := errors.New("device unplugged")
	for i := 0; i < 3; i++ {
		dev.Fail(cause)
	}

	waitDone(t, w)

	err = w.Err()
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Expected ErrRead, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	var readErr *ReadError
	if errors.As(err, &readErr) && readErr.Consecutive != 3 {
		t.Errorf("Expected 3 consecutive failures, got %d", readErr.Consecutive)
	}

	if !dev.IsClosed() {
		t.Error("Device should be released when the worker exits")
	}
	if _, _, err := w.Frames().TryGetLatest(); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Expected ErrSourceClosed, got %v", err)
	}
	if w.Stats().Running {
		t.Error("Stats should report not running")
	}
}

func TestWorker_FatalOnFirstError(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(1), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	dev.Fail(errors.New("boom"))
	waitDone(t, w)

	if !errors.Is(w.Err(), ErrRead) {
		t.Errorf("Expected ErrRead, got %v", w.Err())
	}
}

func TestWorker_StopClosesSource(t *testing.T) {
	dev := NewMockDevice(4, 4, WithInterval(time.Millisecond))

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFrame(t, w)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}

	if w.Err() != nil {
		t.Errorf("Requested stop should not record an error, got %v", w.Err())
	}
	if !dev.IsClosed() {
		t.Error("Device should be closed after Stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := w.Frames().GetLatestBlocking(ctx); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Expected ErrSourceClosed, got %v", err)
	}
}

func TestWorker_StopUnblocksManualRead(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop hung on a blocked read")
	}
}

func TestWorker_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dev := NewMockDevice(2, 2, WithInterval(time.Millisecond))

	w, err := Start(ctx, dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()
	waitDone(t, w)

	if _, _, err := w.Frames().TryGetLatest(); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Expected ErrSourceClosed, got %v", err)
	}
}

func TestWorker_DropsStaleFrames(t *testing.T) {
	dev := NewMockDevice(1, 1, WithManualFeed())

	w, err := Start(context.Background(), dev, fastConfig(3), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		dev.PushBGR(byte(i), 0, 0)
	}

	deadline := time.Now().Add(time.Second)
	for w.Stats().FramesPublished < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	f, ok, err := w.Frames().TryGetLatest()
	if err != nil || !ok {
		t.Fatalf("Expected a frame, ok=%v err=%v", ok, err)
	}
	if f.Seq != 5 {
		t.Errorf("Expected the latest frame (5), got %d", f.Seq)
	}
	if dropped := w.Stats().FramesDropped; dropped != 4 {
		t.Errorf("Expected 4 dropped frames, got %d", dropped)
	}
}

func TestStart_InvalidConfigClosesDevice(t *testing.T) {
	dev := NewMockDevice(1, 1)

	_, err := Start(context.Background(), dev, Config{}, nil)
	if err == nil {
		t.Fatal("Expected error for invalid config")
	}
	if !dev.IsClosed() {
		t.Error("Device should be closed when Start fails")
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 0},
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 50 * time.Millisecond},
		{10, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := p.Backoff(tt.n); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	cfg.Retry.MaxConsecutiveFailures = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero max failures")
	}

	cfg = DefaultConfig()
	cfg.Retry.MaxBackoff = time.Microsecond
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for max backoff below initial backoff")
	}
}
