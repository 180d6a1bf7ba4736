package llm

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultModels is the model used when the configuration leaves it empty.
var DefaultModels = map[string]string{
	ProviderOllama: "llama3.1:8b",
	ProviderOpenAI: "meta-llama/llama-3.1-8b-instruct",
	ProviderGemini: "gemini-2.5-flash",
}

// ProviderConfig selects and parameterizes a backend.
type ProviderConfig struct {
	Kind    string
	Model   string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewProvider builds the backend named by cfg.Kind.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Kind]
	}
	switch cfg.Kind {
	case ProviderOllama:
		return NewOllamaProvider(cfg)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Kind)
	}
}
