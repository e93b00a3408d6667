package openai

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

// CompatibleProvider speaks the OpenAI chat-completions dialect served by
// vLLM, LM Studio, llama.cpp and similar self-hosted runtimes.
type CompatibleProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
	retry       reliability.Policy
}

var _ llm.LLMProvider = &CompatibleProvider{}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request Payload Structure (OpenAI Compatible)
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewCompatibleProvider(apiKey, baseURL, model string, temperature float64) *CompatibleProvider {
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}
	return &CompatibleProvider{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
		retry:       reliability.DefaultPolicy,
	}
}

// WithRetry overrides the retry policy, mainly for tests.
func (p *CompatibleProvider) WithRetry(policy reliability.Policy) *CompatibleProvider {
	p.retry = policy
	return p
}

func (p *CompatibleProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model, Temperature: p.temperature}, options...)

	msgs := make([]chatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleTool {
			continue
		}
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	jsonData, err := json.Marshal(chatRequest{
		Model:       opts.Model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var chatResp chatResponse
	err = reliability.Do(ctx, p.retry, func(ctx context.Context) error {
		return p.post(ctx, jsonData, &chatResp)
	})
	if err != nil {
		return "", err
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("local llm returned error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices from local llm")
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func (p *CompatibleProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func (p *CompatibleProvider) post(ctx context.Context, body []byte, into *chatResponse) error {
	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &reliability.RetryableError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("local llm api error (status %d): %s", resp.StatusCode, string(bodyBytes))
		if reliability.IsRetryableHTTPStatus(resp.StatusCode) {
			return &reliability.RetryableError{Err: statusErr}
		}
		return statusErr
	}

	if err := json.Unmarshal(bodyBytes, into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
