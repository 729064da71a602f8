package session

import (
	"sync"

	"github.com/pongd/pongd/internal/game"
)

// Frame is one outbound snapshot. A broadcast hands the same Frame to
// every subscriber, so channels sharing an encoding share its bytes.
type Frame struct {
	Type  string
	State game.State

	mu  sync.Mutex
	enc map[string][]byte
}

func NewFrame(msgType string, st game.State) *Frame {
	return &Frame{Type: msgType, State: st}
}

// Encoded returns the frame encoded under key. encode runs for the first
// caller of each key only.
func (f *Frame) Encoded(key string, encode func(*Frame) ([]byte, error)) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.enc[key]; ok {
		return b, nil
	}
	b, err := encode(f)
	if err != nil {
		return nil, err
	}
	if f.enc == nil {
		f.enc = make(map[string][]byte)
	}
	f.enc[key] = b
	return b, nil
}
