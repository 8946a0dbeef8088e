package llm

import (
	"context"
	"errors"
	"sync"
)

// MockResponse is a canned reply for MockClient.
type MockResponse struct {
	Text string
	Err  error
}

// MockClient returns canned responses in FIFO order and records every
// request. Once the queue is drained it keeps returning Fallback, or an
// upstream error when Fallback is empty.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	Fallback  string
	Calls     []Request
}

// NewMockClient creates a MockClient with the given canned responses.
func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

// Complete returns the next canned response.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)

	if err := ctx.Err(); err != nil {
		return "", Classify("mock", err)
	}
	if len(m.responses) == 0 {
		if m.Fallback != "" {
			return m.Fallback, nil
		}
		return "", &Error{Provider: "mock", Reason: ReasonUpstreamError, Err: errors.New("no canned response")}
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// CallCount returns the number of Complete calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
