package capture

import (
	"context"
	"sync"

	"github.com/teslashibe/go-webcam/pkg/frame"
)

// Channel is a single-slot mailbox holding the latest unretrieved frame.
//
// Publishing replaces any pending frame and never blocks. Readers take the
// pending frame; a frame is handed to at most one reader.
type Channel struct {
	mu      sync.Mutex
	pending *frame.Converted
	closed  bool

	// ready is closed and replaced on every publish to wake blocked readers.
	ready chan struct{}
	done  chan struct{}
}

// NewChannel creates an empty, open channel.
func NewChannel() *Channel {
	return &Channel{
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Publish stores f as the latest frame. It reports whether an unconsumed
// frame was replaced. Returns ErrSourceClosed after Close.
func (c *Channel) Publish(f frame.Converted) (replaced bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrSourceClosed
	}

	replaced = c.pending != nil
	c.pending = &f

	close(c.ready)
	c.ready = make(chan struct{})

	return replaced, nil
}

// TryGetLatest returns the pending frame, if any, without blocking.
// ok is false when nothing was published since the last retrieval.
func (c *Channel) TryGetLatest() (f frame.Converted, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return frame.Converted{}, false, ErrSourceClosed
	}
	if c.pending == nil {
		return frame.Converted{}, false, nil
	}

	f = *c.pending
	c.pending = nil
	return f, true, nil
}

// GetLatestBlocking returns the pending frame immediately, or waits for the
// next publish. It returns ErrSourceClosed if the channel closes while
// waiting and ctx.Err() if ctx is done first.
//
// This is meant for the first-frame path; a per-tick loop should use
// TryGetLatest.
func (c *Channel) GetLatestBlocking(ctx context.Context) (frame.Converted, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return frame.Converted{}, ErrSourceClosed
		}
		if c.pending != nil {
			f := *c.pending
			c.pending = nil
			c.mu.Unlock()
			return f, nil
		}
		ready := c.ready
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return frame.Converted{}, ctx.Err()
		case <-c.done:
			return frame.Converted{}, ErrSourceClosed
		case <-ready:
			// Another reader may have taken the frame; loop and re-check.
		}
	}
}

// Close marks the source as finished. A pending frame is discarded and all
// blocked readers are released. It is safe to call Close multiple times.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.pending = nil
	close(c.done)
}

// Closed returns a channel that is closed once the source is closed.
func (c *Channel) Closed() <-chan struct{} {
	return c.done
}
