package api

import (
	"context"
	"sync"

	"github.com/diogo/detectchat/internal/models"
)

// MockDetectClient is a scripted detector for tests of packages that sit on top of the client
type MockDetectClient struct {
	// Result and Err are returned when DetectFunc is nil
	Result     *models.DetectResult
	Err        error
	DetectFunc func(ctx context.Context, prompt string) (*models.DetectResult, error)

	mu      sync.Mutex
	prompts []string
}

// Detect records the prompt and returns the scripted answer
func (m *MockDetectClient) Detect(ctx context.Context, prompt string) (*models.DetectResult, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, prompt)
	}
	return m.Result, m.Err
}

// Prompts returns every prompt received so far
func (m *MockDetectClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls returns how many times Detect was called
func (m *MockDetectClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
