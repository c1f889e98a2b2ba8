package messaging

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is one recorded outbound message.
type SentMessage struct {
	Address string
	Body    string
	FlowID  string // set for flow sends
}

// MemorySender records outbound messages instead of delivering them. Useful
// for tests and local development; can be made to fail a fixed number of
// times to exercise retry and error paths.
type MemorySender struct {
	mu       sync.Mutex
	sent     []SentMessage
	failures int
	nextID   int
}

// NewMemorySender constructs an empty recording sender.
func NewMemorySender() *MemorySender { return &MemorySender{} }

// FailNext makes the next n delivery attempts fail.
func (s *MemorySender) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

// Sent returns a copy of all recorded messages in send order.
func (s *MemorySender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *MemorySender) Send(_ context.Context, address, body string) (*Receipt, error) {
	return s.record(SentMessage{Address: address, Body: body})
}

func (s *MemorySender) SendFlow(_ context.Context, address, flowID, prompt string) (*Receipt, error) {
	return s.record(SentMessage{Address: address, Body: prompt, FlowID: flowID})
}

func (s *MemorySender) record(msg SentMessage) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return nil, &DeliveryError{Address: msg.Address, Cause: fmt.Errorf("simulated transport failure")}
	}
	s.sent = append(s.sent, msg)
	s.nextID++
	return &Receipt{MessageID: fmt.Sprintf("mem-%d", s.nextID), Address: msg.Address}, nil
}
