package llm

import (
	"context"
	"sync"
)

// MockClient is a canned-response client for tests and offline runs.
type MockClient struct {
	mu        sync.Mutex
	responses []Response
	err       error
	calls     []Request
}

// NewMockClient creates a mock that returns the given responses in order,
// repeating the last one once exhausted. With no responses it returns an
// empty completion.
func NewMockClient(responses ...Response) *MockClient {
	return &MockClient{responses: responses}
}

// FailWith makes every subsequent Complete call return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, in Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if err := validateRequest(in); err != nil {
		return Response{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, in)

	if m.err != nil {
		return Response{}, m.err
	}
	if len(m.responses) == 0 {
		return Response{StopReason: "end_turn"}, nil
	}

	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// ModelName implements Client.
func (m *MockClient) ModelName() string {
	return "mock"
}

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
