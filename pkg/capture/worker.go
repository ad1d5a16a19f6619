package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-webcam/pkg/frame"
)

// Worker owns a Device and continuously publishes converted frames into
// its Channel.
type Worker struct {
	id     string
	dev    Device
	cfg    Config
	logger *slog.Logger
	frames *Channel

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	errMu sync.Mutex
	err   error

	// Stats
	seq              uint64 // touched only by the loop goroutine
	captured         atomic.Int64
	published        atomic.Int64
	dropped          atomic.Int64
	conversionErrors atomic.Int64
	readErrors       atomic.Int64
	consecutive      atomic.Int64
}

// Start launches a worker over an already-open device. The worker owns dev
// from this point on and closes it when the loop exits. On an invalid
// config dev is closed and an error returned.
func Start(ctx context.Context, dev Device, cfg Config, logger *slog.Logger) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)

	w := &Worker{
		id:     id,
		dev:    dev,
		cfg:    cfg,
		logger: logger.With("worker_id", id, "backend", dev.Name()),
		frames: NewChannel(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go w.run(ctx)

	w.logger.Info("capture worker started",
		"max_failures", cfg.Retry.MaxConsecutiveFailures,
	)

	return w, nil
}

// ID returns the unique worker identifier.
func (w *Worker) ID() string {
	return w.id
}

// Frames returns the consumer end of the worker's mailbox.
func (w *Worker) Frames() *Channel {
	return w.frames
}

// Done is closed once the capture loop has exited and the device is released.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err returns the reason the loop exited, or nil while running or after a
// requested stop.
func (w *Worker) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

// Stop closes the channel, cancels the loop and waits for the device to be
// released. It is safe to call Stop multiple times.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() {
		w.frames.Close()
		w.cancel()
	})
	<-w.done
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.release()
	defer w.frames.Close()

	policy := w.cfg.Retry
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := w.dev.Read(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			failures++
			w.readErrors.Add(1)
			w.consecutive.Store(int64(failures))

			if failures >= policy.MaxConsecutiveFailures {
				w.setErr(&ReadError{Consecutive: failures, Err: err})
				w.logger.Error("capture worker giving up",
					"consecutive_failures", failures,
					"error", err,
				)
				return
			}

			backoff := policy.Backoff(failures)
			w.logger.Warn("frame read failed, retrying",
				"consecutive_failures", failures,
				"backoff", backoff,
				"error", err,
			)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}

		if failures > 0 {
			w.logger.Info("frame read recovered", "after_failures", failures)
			failures = 0
			w.consecutive.Store(0)
		}
		w.captured.Add(1)

		converted, err := frame.Convert(raw)
		if err != nil {
			w.conversionErrors.Add(1)
			w.logger.Warn("skipping frame", "error", err)
			continue
		}

		w.seq++
		converted.Seq = w.seq

		replaced, err := w.frames.Publish(converted)
		if errors.Is(err, ErrSourceClosed) {
			return
		}
		if replaced {
			w.dropped.Add(1)
		}
		w.published.Add(1)
	}
}

func (w *Worker) release() {
	if err := w.dev.Close(); err != nil {
		w.logger.Warn("device close failed", "error", err)
	}
	w.logger.Info("capture worker stopped",
		"frames_published", w.published.Load(),
		"frames_dropped", w.dropped.Load(),
	)
}

func (w *Worker) setErr(err error) {
	w.errMu.Lock()
	w.err = err
	w.errMu.Unlock()
}

// Stats contains statistics about a capture worker.
type Stats struct {
	// ID is the worker identifier.
	ID string `json:"id"`

	// Backend is the name of the device backend.
	Backend string `json:"backend"`

	// FramesCaptured counts successful device reads.
	FramesCaptured int64 `json:"frames_captured"`

	// FramesPublished counts frames handed to the channel.
	FramesPublished int64 `json:"frames_published"`

	// FramesDropped counts published frames that replaced an unconsumed one.
	FramesDropped int64 `json:"frames_dropped"`

	// ConversionErrors counts skipped malformed frames.
	ConversionErrors int64 `json:"conversion_errors"`

	// ReadErrors counts failed device reads.
	ReadErrors int64 `json:"read_errors"`

	// ConsecutiveFailures is the current run of failed reads.
	ConsecutiveFailures int64 `json:"consecutive_failures"`

	// Running indicates if the capture loop is still active.
	Running bool `json:"running"`
}

// Stats returns a snapshot of worker statistics.
func (w *Worker) Stats() Stats {
	running := true
	select {
	case <-w.done:
		running = false
	default:
	}

	return Stats{
		ID:                  w.id,
		Backend:             w.dev.Name(),
		FramesCaptured:      w.captured.Load(),
		FramesPublished:     w.published.Load(),
		FramesDropped:       w.dropped.Load(),
		ConversionErrors:    w.conversionErrors.Load(),
		ReadErrors:          w.readErrors.Load(),
		ConsecutiveFailures: w.consecutive.Load(),
		Running:             running,
	}
}
