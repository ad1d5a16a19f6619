package preview

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/frame"
	"github.com/teslashibe/go-webcam/pkg/hub"
)

// ErrNoFrame is returned by Snapshot before the first frame was presented.
var ErrNoFrame = errors.New("preview: no frame presented yet")

// FrameSource is the consumer end of a capture channel.
type FrameSource interface {
	TryGetLatest() (frame.Converted, bool, error)
	GetLatestBlocking(ctx context.Context) (frame.Converted, error)
}

// UploadFunc receives every newly presented frame on the tick goroutine,
// e.g. to copy it into a GPU texture. It must not retain f.Pix past the
// next call if it mutates it.
type UploadFunc func(f frame.Converted)

// Presenter polls a FrameSource once per tick and keeps the latest frame as
// the current "texture".
type Presenter struct {
	src    FrameSource
	cfg    Config
	hub    *hub.Hub
	upload UploadFunc
	logger *slog.Logger

	mu      sync.RWMutex
	current frame.Converted
	jpeg    []byte
	jpegSeq uint64

	ticks   atomic.Int64
	updates atomic.Int64
	idle    atomic.Int64
	ended   atomic.Bool
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithHub streams presented frames to the hub's clients.
func WithHub(h *hub.Hub) PresenterOption {
	return func(p *Presenter) {
		p.hub = h
	}
}

// WithUpload registers a per-frame upload callback.
func WithUpload(fn UploadFunc) PresenterOption {
	return func(p *Presenter) {
		p.upload = fn
	}
}

// NewPresenter creates a presenter over src.
func NewPresenter(src FrameSource, cfg Config, logger *slog.Logger, opts ...PresenterOption) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultConfig().TickRate
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultConfig().JPEGQuality
	}

	p := &Presenter{
		src:    src,
		cfg:    cfg,
		logger: logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run waits for the first frame, then polls once per tick until ctx is
// done or the source closes. A closed source ends the feed but not the
// host: the last frame stays available and Run returns nil.
func (p *Presenter) Run(ctx context.Context) error {
	start := time.Now()

	first, err := p.src.GetLatestBlocking(ctx)
	if err != nil {
		return p.finish(ctx, err)
	}
	p.present(first)
	p.logger.Info("first frame presented",
		"width", first.Width,
		"height", first.Height,
		"wait", time.Since(start),
	)

	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Tick(); err != nil {
				return p.finish(ctx, err)
			}
		}
	}
}

// Tick performs one non-blocking poll. It returns capture.ErrSourceClosed
// once the feed has ended.
func (p *Presenter) Tick() error {
	p.ticks.Add(1)

	f, ok, err := p.src.TryGetLatest()
	if err != nil {
		return err
	}
	if !ok {
		p.idle.Add(1)
		return nil
	}
	p.present(f)
	return nil
}

func (p *Presenter) finish(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, capture.ErrSourceClosed) {
		p.ended.Store(true)
		p.logger.Warn("video feed ended; keeping last frame")
		return nil
	}
	return err
}

func (p *Presenter) present(f frame.Converted) {
	p.mu.Lock()
	p.current = f
	p.mu.Unlock()
	p.updates.Add(1)

	if p.upload != nil {
		p.upload(f)
	}

	if p.hub != nil && p.hub.ClientCount() > 0 {
		data, err := p.Snapshot()
		if err != nil {
			p.logger.Warn("encode preview frame failed", "error", err)
			return
		}
		p.hub.BroadcastFrame(data)
	}
}

// Current returns the most recently presented frame.
func (p *Presenter) Current() (frame.Converted, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.current.Valid()
}

// Snapshot returns the current frame as JPEG. Encodings are cached per
// frame.
func (p *Presenter) Snapshot() ([]byte, error) {
	p.mu.RLock()
	cur := p.current
	cached, cachedSeq := p.jpeg, p.jpegSeq
	p.mu.RUnlock()

	if !cur.Valid() {
		return nil, ErrNoFrame
	}
	if cached != nil && cachedSeq == cur.Seq {
		return cached, nil
	}

	data, err := EncodeJPEG(cur, p.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.current.Seq == cur.Seq {
		p.jpeg, p.jpegSeq = data, cur.Seq
	}
	p.mu.Unlock()

	return data, nil
}

// EncodeJPEG encodes a converted frame.
func EncodeJPEG(f frame.Converted, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PresenterStats contains statistics about the tick loop.
type PresenterStats struct {
	// Ticks is the number of polls.
	Ticks int64 `json:"ticks"`

	// Updates is the number of frames presented.
	Updates int64 `json:"updates"`

	// IdleTicks counts polls that found no new frame.
	IdleTicks int64 `json:"idle_ticks"`

	// LastSeq is the sequence number of the current frame.
	LastSeq uint64 `json:"last_seq"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// FeedEnded is set once the capture source has closed.
	FeedEnded bool `json:"feed_ended"`
}

// Stats returns a snapshot of presenter statistics.
func (p *Presenter) Stats() PresenterStats {
	p.mu.RLock()
	cur := p.current
	p.mu.RUnlock()

	return PresenterStats{
		Ticks:     p.ticks.Load(),
		Updates:   p.updates.Load(),
		IdleTicks: p.idle.Load(),
		LastSeq:   cur.Seq,
		Width:     cur.Width,
		Height:    cur.Height,
		FeedEnded: p.ended.Load(),
	}
}
