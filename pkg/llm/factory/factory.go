package factory

import (
	"fmt"

	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/llm/gemini"
	"agentic-rag-be/pkg/llm/ollama"
	"agentic-rag-be/pkg/llm/openai"
)

// Spec describes one model endpoint.
type Spec struct {
	Provider    string // "gemini", "openai", "ollama"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
}

func NewLLMProvider(spec Spec) (llm.LLMProvider, error) {
	switch spec.Provider {
	case "gemini":
		if spec.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		p := gemini.NewGeminiProvider(spec.APIKey, spec.Model, spec.Temperature)
		if spec.BaseURL != "" {
			p.BaseURL = spec.BaseURL
		}
		return p, nil
	case "openai", "":
		return openai.NewCompatibleProvider(spec.APIKey, spec.BaseURL, spec.Model, spec.Temperature), nil
	case "ollama":
		baseURL := spec.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, spec.Model, spec.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", spec.Provider)
	}
}

// NewToolCaller builds a provider that supports function calling.
func NewToolCaller(spec Spec) (llm.ToolCaller, error) {
	p, err := NewLLMProvider(spec)
	if err != nil {
		return nil, err
	}
	tc, ok := p.(llm.ToolCaller)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support tool calling", spec.Provider)
	}
	return tc, nil
}
