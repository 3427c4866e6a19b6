package queue

import (
	"context"
	"sync"
)

// MemoryClient buffers messages in memory. Used when no SQS queue is
// configured; the scheduler's dispatch tick drains due applications directly
// in that mode, so buffered messages are advisory.
type MemoryClient struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

func (m *MemoryClient) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Drain returns and clears all buffered messages.
func (m *MemoryClient) Drain() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.messages
	m.messages = nil
	return out
}

var _ Client = (*MemoryClient)(nil)
