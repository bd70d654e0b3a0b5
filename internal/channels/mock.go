// internal/channels/mock.go
package channels

import (
	"sync"
	"time"
)

// MockMessage is one message recorded into an in-memory sink when a channel
// has no live transport configured.
type MockMessage struct {
	Channel        Channel   `json:"channel"`
	NotificationID string    `json:"notificationId"`
	Recipient      string    `json:"recipient"`
	Subject        string    `json:"subject,omitempty"`
	Body           string    `json:"body"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// MockSinks collects messages for all channels. It exists so the engine can
// run fully, and be observed in tests, without any transport credentials.
// Appends only; recorded messages are never removed.
type MockSinks struct {
	mu       sync.Mutex
	messages []MockMessage
}

func NewMockSinks() *MockSinks {
	return &MockSinks{}
}

func (s *MockSinks) Record(msg MockMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.RecordedAt.IsZero() {
		msg.RecordedAt = time.Now().UTC()
	}
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of everything recorded so far.
func (s *MockSinks) Messages() []MockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MockMessage(nil), s.messages...)
}

// ByChannel returns recorded messages for one channel.
func (s *MockSinks) ByChannel(ch Channel) []MockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MockMessage
	for _, m := range s.messages {
		if m.Channel == ch {
			out = append(out, m)
		}
	}
	return out
}

// Len reports the total number of recorded messages.
func (s *MockSinks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
