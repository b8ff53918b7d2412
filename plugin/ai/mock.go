package ai

import (
	"context"
	"sync"
)

// MockChatCompleter is a scripted ChatCompleter for tests.
type MockChatCompleter struct {
	mu sync.Mutex

	// Responses are returned in order; the last one repeats.
	Responses []string
	// Err, when set, is returned for every call.
	Err error

	// Requests records every prompt received.
	Requests [][]Message

	calls int
}

// Chat returns the next scripted response.
func (m *MockChatCompleter) Chat(_ context.Context, messages []Message, _ ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx], nil
}

// Calls returns how many chat calls were made.
func (m *MockChatCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the concatenated content of the last request, or "".
func (m *MockChatCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return ""
	}
	var out string
	for _, msg := range m.Requests[len(m.Requests)-1] {
		out += msg.Content + "\n"
	}
	return out
}

var _ ChatCompleter = (*MockChatCompleter)(nil)
