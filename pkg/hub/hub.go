package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink receives broadcast messages. Send must not block; it reports false
// when the sink cannot keep up and should be removed.
type Sink interface {
	Send(msg Message) bool
	Close()
}

// Hub maintains the set of active sinks and broadcasts messages to them.
// Registration, removal and fan-out all happen on the Run goroutine.
type Hub struct {
	name   string
	logger *slog.Logger

	sinks      map[Sink]bool
	broadcast  chan Message
	register   chan Sink
	unregister chan Sink

	mu      sync.RWMutex // guards count for readers outside Run
	count   int
	dropped atomic.Int64
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		sinks:      make(map[Sink]bool),
		broadcast:  make(chan Message, 16),
		register:   make(chan Sink),
		unregister: make(chan Sink),
	}
}

// Run fans messages out until ctx is done, then closes every sink.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for s := range h.sinks {
			s.Close()
			delete(h.sinks, s)
		}
		h.setCount(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.sinks[s] = true
			h.setCount(len(h.sinks))
			h.logger.Info("client connected", "clients", len(h.sinks))

		case s := <-h.unregister:
			if h.sinks[s] {
				delete(h.sinks, s)
				s.Close()
			}
			h.setCount(len(h.sinks))
			h.logger.Info("client disconnected", "clients", len(h.sinks))

		case msg := <-h.broadcast:
			for s := range h.sinks {
				if !s.Send(msg) {
					delete(h.sinks, s)
					s.Close()
					h.logger.Warn("dropped slow client")
				}
			}
			h.setCount(len(h.sinks))
		}
	}
}

// Register adds s. It blocks until Run accepts it or ctx is done.
func (h *Hub) Register(ctx context.Context, s Sink) bool {
	select {
	case h.register <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unregister removes and closes s.
func (h *Hub) Unregister(ctx context.Context, s Sink) {
	select {
	case h.unregister <- s:
	case <-ctx.Done():
	}
}

// Broadcast queues msg for every sink. It never blocks; when the queue is
// full the message is dropped, which for frames means the next one wins.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message")
		return false
	}
}

// BroadcastJSON encodes and broadcasts a text message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewTextMessage(data))
	return nil
}

// BroadcastFrame broadcasts an encoded frame
func (h *Hub) BroadcastFrame(data []byte) bool {
	return h.Broadcast(NewFrameMessage(data))
}

// ClientCount returns the number of connected sinks
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Dropped returns the number of messages dropped at the broadcast queue.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
