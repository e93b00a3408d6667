package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/reliability"
)

// OllamaProvider serves the local model through Ollama's native /api/chat.
type OllamaProvider struct {
	BaseURL     string
	ModelName   string
	Temperature float64
	Client      *http.Client
	Retry       reliability.Policy
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, temperature float64) *OllamaProvider {
	// The shared LOCAL_LLM_BASE_URL usually carries an OpenAI-style /v1 suffix.
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1")
	return &OllamaProvider{
		BaseURL:     baseURL,
		ModelName:   modelName,
		Temperature: temperature,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
		Retry: reliability.DefaultPolicy,
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Temperature: o.Temperature, Model: o.ModelName}, opts...)

	ollamaMessages := make([]ollamaMessage, 0, len(history))
	for _, msg := range history {
		if msg.Role == llm.RoleTool {
			continue
		}
		ollamaMessages = append(ollamaMessages, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}

	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: ollamaMessages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var ollamaResp ollamaChatResponse
	err = reliability.Do(ctx, o.Retry, func(ctx context.Context) error {
		return o.post(ctx, payloadBytes, &ollamaResp)
	})
	if err != nil {
		return "", err
	}
	if ollamaResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", ollamaResp.Error)
	}

	return strings.TrimSpace(ollamaResp.Message.Content), nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (o *OllamaProvider) post(ctx context.Context, body []byte, into *ollamaChatResponse) error {
	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/api/chat", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return &reliability.RetryableError{Err: fmt.Errorf("ollama request failed: %w", err)}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
		if reliability.IsRetryableHTTPStatus(resp.StatusCode) {
			return &reliability.RetryableError{Err: statusErr}
		}
		return statusErr
	}

	if err := json.Unmarshal(bodyBytes, into); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
