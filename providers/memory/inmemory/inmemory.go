package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/memory"
)

// ArrayMemory keeps messages in a slice guarded by an RWMutex. A positive
// limit drops the oldest messages once exceeded.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
	limit    int
}

var _ memory.Provider = (*ArrayMemory)(nil)

// New returns an empty, unbounded store.
func New() *ArrayMemory {
	return &ArrayMemory{messages: []ai.Message{}}
}

// NewWithLimit returns an empty store that keeps at most limit messages.
// A leading system message is never evicted.
func NewWithLimit(limit int) *ArrayMemory {
	return &ArrayMemory{messages: []ai.Message{}, limit: limit}
}

// AppendMessage stores message at the end of the history.
func (m *ArrayMemory) AppendMessage(_ context.Context, message ai.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, message)
	if m.limit <= 0 || len(m.messages) <= m.limit {
		return
	}

	keep := 0
	if m.messages[0].Role == ai.RoleSystem && m.limit > 1 {
		keep = 1
	}
	excess := len(m.messages) - m.limit
	m.messages = append(m.messages[:keep], m.messages[keep+excess:]...)
}

// Count returns the number of stored messages.
func (m *ArrayMemory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages), nil
}

// Messages returns a copy of every stored message.
func (m *ArrayMemory) Messages(context.Context) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ai.Message{}, m.messages...), nil
}

// LastMessages returns up to n of the newest messages. n <= 0 yields an
// empty slice.
func (m *ArrayMemory) LastMessages(_ context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n = min(n, len(m.messages))
	return append([]ai.Message{}, m.messages[len(m.messages)-n:]...), nil
}

// PopLastMessage removes and returns the newest message.
func (m *ArrayMemory) PopLastMessage(context.Context) (ai.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ai.Message{}, false, nil
	}
	last := m.messages[len(m.messages)-1]
	m.messages = m.messages[:len(m.messages)-1]
	return last, true, nil
}

// Clear removes every message, keeping the slice capacity.
func (m *ArrayMemory) Clear(context.Context) {
	m.mu.Lock()
	m.messages = m.messages[:0]
	m.mu.Unlock()
}
