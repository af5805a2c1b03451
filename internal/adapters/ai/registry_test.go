package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/adapters/config"
	"decisionflow/pkg/errors"
)

func TestProviderRegistry_RegisterAndGet(t *testing.T) {
	registry := NewProviderRegistry()

	provider := NewOpenAIProvider("test-key", time.Second, NewNoOpLimiter())
	require.NoError(t, registry.Register(provider))

	got, err := registry.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", got.Name())

	// Duplicate registration fails
	require.Error(t, registry.Register(provider))

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestProviderRegistry_GetChat(t *testing.T) {
	registry := NewProviderRegistry()
	require.NoError(t, registry.Register(NewGeminiProvider("key", time.Second, nil)))

	chat, err := registry.GetChat("gemini")
	require.NoError(t, err)
	assert.True(t, chat.SupportsStreaming())
}

func TestProviderRegistry_ResolveModel(t *testing.T) {
	registry := NewProviderRegistry()
	require.NoError(t, registry.Register(NewOpenAIProvider("key", time.Second, nil)))

	info, err := registry.ResolveModel(context.Background(), "openai", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 8192, info.MaxTokens)
	assert.True(t, info.SupportsTools)

	_, err = registry.ResolveModel(context.Background(), "openai", "gpt-imaginary")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBuildRegistry_NoKeys(t *testing.T) {
	_, err := BuildRegistry(config.AIConfig{}, nil)
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestBuildRegistry_WithKeys(t *testing.T) {
	cfg := config.AIConfig{
		OpenAIKey:          "key-a",
		GeminiKey:          "key-b",
		RequestTimeout:     30 * time.Second,
		RateLimitEnabled:   true,
		OpenAIReqPerMinute: 500,
		OpenAIBurst:        50,
		GeminiReqPerMinute: 300,
		GeminiBurst:        30,
	}

	registry, err := BuildRegistry(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, registry.List(), 2)
}
