package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithConfigDefaults(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{APIKey: "test-key"})
	require.NoError(t, err)

	assert.Equal(t, "mistralai/Mixtral-8x7B-Instruct-v0.1", engine.config.Model)
	assert.Equal(t, 2000, engine.config.MaxTokens)
	assert.Equal(t, float64(0), engine.config.Temperature)
}

func TestNewWithConfigRejectsBadTemperature(t *testing.T) {
	_, err := NewWithConfig(ChatConfig{APIKey: "test-key", Temperature: 2.5})
	assert.Error(t, err)

	_, err = NewWithConfig(ChatConfig{APIKey: "test-key", Temperature: -0.1})
	assert.Error(t, err)
}

func TestNewWithConfigAllowsZeroTemperature(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{APIKey: "test-key", Temperature: 0})
	require.NoError(t, err)
	assert.Equal(t, float64(0), engine.config.Temperature)
}

func TestNewWithConfigRejectsNegativeMaxTokens(t *testing.T) {
	_, err := NewWithConfig(ChatConfig{APIKey: "test-key", MaxTokens: -1})
	assert.Error(t, err)
}

func TestNewEmbedderDefaults(t *testing.T) {
	embedder, err := NewEmbedder(EmbedderConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, embedder)
}
