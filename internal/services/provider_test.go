package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNarrator_Providers(t *testing.T) {
	v := testValidator()
	for _, provider := range []string{"anthropic", "openai", "ollama", "mock", "MOCK"} {
		t.Run(provider, func(t *testing.T) {
			n, err := NewNarrator(context.Background(), ProviderOptions{Provider: provider, Model: "m", APIKey: "k"}, v, nil, discardLogger())
			require.NoError(t, err)
			assert.NotNil(t, n.Generator)
			assert.NoError(t, n.Close())
		})
	}

	_, err := NewNarrator(context.Background(), ProviderOptions{Provider: "venice"}, v, nil, discardLogger())
	assert.Error(t, err)
}

func TestNewNarrator_MockIsInstrumented(t *testing.T) {
	reg := prometheus.NewRegistry()
	n, err := NewNarrator(context.Background(), ProviderOptions{Provider: "mock"}, testValidator(), NewGeneratorMetrics(reg), discardLogger())
	require.NoError(t, err)

	_, ok := n.Generator.(*InstrumentedGenerator)
	require.True(t, ok)

	resp, err := n.Generator.Generate(context.Background(), GenerationRequest{Command: "Look around"})
	require.NoError(t, err)
	assert.Contains(t, resp.Narrative, "look around")
	assert.NoError(t, n.Ping(context.Background()))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNarrator_PingOllama(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := NewNarrator(context.Background(), ProviderOptions{Provider: "ollama", Model: "llama3.1", BaseURL: server.URL}, testValidator(), nil, discardLogger())
	require.NoError(t, err)
	assert.NoError(t, n.Ping(context.Background()))

	server.Close()
	assert.Error(t, n.Ping(context.Background()))
}
