package llm

import (
	"context"
	"errors"
)

// ErrNoResponse is returned when a provider answers without any content
var ErrNoResponse = errors.New("no response from model")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the model used for completions
	Model() string

	// Invoke sends a system instruction and user prompt and returns the raw text reply
	Invoke(ctx context.Context, system, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; stage outputs are structured so keep it low
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "ollama",
		Model:       "qwen2.5:14b",
		BaseURL:     "http://localhost:11434",
		Timeout:     120,
		MaxTokens:   2000,
		Temperature: 0.2,
	}
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 2000
}
