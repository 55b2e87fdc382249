package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

// MockGenerator is a mock implementation of Generator for testing and for
// running without a model provider.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error)

	// Track calls for testing
	GenerateCalls []GenerationRequest

	mu sync.Mutex // protects all fields above
}

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		GenerateCalls: make([]GenerationRequest, 0),
	}
}

// Generate records the call and delegates to GenerateFunc. The lock is
// released before GenerateFunc runs so blocking fakes do not stall
// CallCount.
func (m *MockGenerator) Generate(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	// Default behavior - a harmless turn that echoes the command
	return &narrative.StructuredResponse{
		Narrative: mockNarrative(req.Command),
		VisualCue: narrative.VisualNone,
		SoundCue:  narrative.SoundNone,
	}, nil
}

// SetResponse makes every call return resp.
func (m *MockGenerator) SetResponse(resp narrative.StructuredResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error) {
		out := resp
		return &out, nil
	}
}

// SetError makes every call fail with a classified error of kind.
func (m *MockGenerator) SetError(kind ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error) {
		return nil, &GenerationError{Kind: kind, Message: "mock failure"}
	}
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls)
}

// LastCall returns the most recent request.
func (m *MockGenerator) LastCall() (GenerationRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.GenerateCalls) == 0 {
		return GenerationRequest{}, false
	}
	return m.GenerateCalls[len(m.GenerateCalls)-1], true
}

// Reset clears all mock state
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = nil
	m.GenerateCalls = make([]GenerationRequest, 0)
}

func mockNarrative(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return "The world holds its breath, waiting for you."
	}
	return fmt.Sprintf("You %s. The world shifts quietly around you, but nothing else happens yet.",
		strings.TrimSuffix(strings.ToLower(command), "."))
}
