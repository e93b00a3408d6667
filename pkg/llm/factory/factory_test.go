package factory

import (
	"testing"

	"agentic-rag-be/pkg/llm/gemini"
	"agentic-rag-be/pkg/llm/ollama"
	"agentic-rag-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		want    interface{}
		wantErr bool
	}{
		{"gemini", Spec{Provider: "gemini", APIKey: "k", Model: "gemini-2.0-flash"}, &gemini.GeminiProvider{}, false},
		{"gemini without key", Spec{Provider: "gemini"}, nil, true},
		{"openai compatible", Spec{Provider: "openai", Model: "local-model"}, &openai.CompatibleProvider{}, false},
		{"ollama", Spec{Provider: "ollama", Model: "gemma:2b"}, &ollama.OllamaProvider{}, false},
		{"unknown", Spec{Provider: "bard"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestNewToolCaller(t *testing.T) {
	_, err := NewToolCaller(Spec{Provider: "gemini", APIKey: "k"})
	assert.NoError(t, err)

	_, err = NewToolCaller(Spec{Provider: "ollama"})
	assert.Error(t, err)
}
