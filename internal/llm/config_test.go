package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, DefaultMaxAttempts, config.MaxAttempts)
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
	assert.Equal(t, "", (&Config{Models: map[ModelTier]string{}}).GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, config.GetModel(TierLite), newConfig.GetModel(TierLite))
}

func TestConfig_Normalize(t *testing.T) {
	cfg := &Config{Provider: ProviderOpenAI, Models: map[ModelTier]string{TierStandard: "llama-3.3-70b"}}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, "llama-3.3-70b", cfg.GetModel(TierStandard))
	assert.Equal(t, "gpt-4o-mini", cfg.GetModel(TierLite))
	assert.Equal(t, defaultOpenAIBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxAttempts)

	empty := &Config{Timeout: time.Second}
	require.NoError(t, empty.Normalize())
	assert.Equal(t, ProviderGemini, empty.Provider)
	assert.Equal(t, time.Second, empty.Timeout)

	assert.Error(t, (&Config{Provider: "anthropic"}).Normalize())
}

func TestConfig_Configured(t *testing.T) {
	var nilConfig *Config
	assert.False(t, nilConfig.Configured())
	assert.False(t, (&Config{Provider: ProviderGemini}).Configured())
	assert.True(t, (&Config{Provider: ProviderGemini, APIKey: "k"}).Configured())
	assert.True(t, (&Config{Provider: ProviderVertex, Project: "p"}).Configured())
	assert.False(t, (&Config{Provider: ProviderOpenAI, Project: "p"}).Configured())
}
