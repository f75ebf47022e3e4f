// Package llm provides the text-generation clients used by the analysis engine
// and the retry policy wrapped around them.
package llm

import (
	"fmt"
	"strings"
	"time"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short, cheap calls such as dialogue finalization
	TierLite ModelTier = "lite"
	// TierStandard is for structured fit analysis
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for long transcripts
	TierAdvanced ModelTier = "advanced"
)

// Provider represents a generation backend
type Provider string

const (
	// ProviderGemini is Google AI Studio through generative-ai-go
	ProviderGemini Provider = "gemini"
	// ProviderVertex is Gemini on Vertex AI through google.golang.org/genai
	ProviderVertex Provider = "vertex"
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint
	ProviderOpenAI Provider = "openai"
)

const (
	// DefaultMaxAttempts is the number of calls made before a generation is treated as unavailable.
	DefaultMaxAttempts = 3
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 60 * time.Second

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultVertexRegion  = "us-central1"
)

// Config holds the generation backend configuration
type Config struct {
	Provider Provider
	Models   map[ModelTier]string

	APIKey   string
	BaseURL  string // OpenAI-compatible endpoints only
	Project  string // Vertex only
	Location string // Vertex only

	Timeout     time.Duration
	MaxAttempts int
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// DefaultOpenAIConfig returns the default configuration for OpenAI-compatible endpoints
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
		BaseURL:     defaultOpenAIBaseURL,
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// DefaultsFor returns the default configuration of a provider.
func DefaultsFor(p Provider) *Config {
	switch p {
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	case ProviderVertex:
		cfg := DefaultGeminiConfig()
		cfg.Provider = ProviderVertex
		cfg.Location = defaultVertexRegion
		return cfg
	default:
		return DefaultGeminiConfig()
	}
}

// Configured reports whether enough credentials are present to make calls.
func (c *Config) Configured() bool {
	if c == nil {
		return false
	}
	if c.Provider == ProviderVertex {
		return strings.TrimSpace(c.Project) != "" || strings.TrimSpace(c.APIKey) != ""
	}
	return strings.TrimSpace(c.APIKey) != ""
}

// Normalize fills defaults and validates the provider.
func (c *Config) Normalize() error {
	switch c.Provider {
	case "":
		c.Provider = ProviderGemini
	case ProviderGemini, ProviderVertex, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}

	defaults := DefaultsFor(c.Provider)
	if c.Models == nil {
		c.Models = map[ModelTier]string{}
	}
	for tier, model := range defaults.Models {
		if strings.TrimSpace(c.Models[tier]) == "" {
			c.Models[tier] = model
		}
	}
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Location == "" {
		c.Location = defaults.Location
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
