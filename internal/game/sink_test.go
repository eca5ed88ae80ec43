package game

import (
	"sync"

	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// recordingSink is a fake Sink that records every message it receives,
// standing in for a real websocket connection in tests.
type recordingSink struct {
	mu       sync.Mutex
	messages []*protocol.Message
	closed   bool
	failNext bool
}

func (s *recordingSink) WriteMessage(msg *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		return errClosedSink
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Received() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *recordingSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type sinkClosedError struct{}

func (sinkClosedError) Error() string { return "sink closed" }

var errClosedSink = sinkClosedError{}

func newTestUser(name string) (*User, *recordingSink) {
	sink := &recordingSink{}
	return NewUser(name, sink), sink
}
