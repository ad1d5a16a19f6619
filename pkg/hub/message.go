// Package hub fans preview frames and status updates out to websocket
// clients. Slow clients are dropped instead of slowing the broadcaster.
package hub

// MessageType indicates the websocket message format
type MessageType int

const (
	// TextMessage is a JSON-encoded status message
	TextMessage MessageType = iota
	// FrameMessage is an encoded image (JPEG)
	FrameMessage
)

// Message is a single broadcast payload. Data is shared between clients
// and must not be modified after Broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage creates a text message from pre-encoded JSON
func NewTextMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// NewFrameMessage creates a frame message
func NewFrameMessage(data []byte) Message {
	return Message{Type: FrameMessage, Data: data}
}
