package invoker

import (
	"context"
	"sync"
)

// MockGenerator is a scriptable TextGenerator for tests.
type MockGenerator struct {
	Response     string
	Err          error
	GenerateFunc func(ctx context.Context, modelID, prompt string, maxTokens int) (string, error)

	mu    sync.Mutex
	calls []Call
}

type Call struct {
	ModelID   string
	Prompt    string
	MaxTokens int
}

func (m *MockGenerator) Generate(ctx context.Context, modelID, prompt string, maxTokens int) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{ModelID: modelID, Prompt: prompt, MaxTokens: maxTokens})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, modelID, prompt, maxTokens)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockGenerator) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
