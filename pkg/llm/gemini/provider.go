package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/reliability"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"

	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiProvider talks to the generateContent endpoint. It supports system
// instructions and function calling.
type GeminiProvider struct {
	ApiKey      string
	BaseURL     string
	ModelName   string
	Temperature float64
	Client      *http.Client
	Retry       reliability.Policy
}

var (
	_ llm.LLMProvider = &GeminiProvider{}
	_ llm.ToolCaller  = &GeminiProvider{}
)

func NewGeminiProvider(apiKey, modelName string, temperature float64) *GeminiProvider {
	return &GeminiProvider{
		ApiKey:      apiKey,
		BaseURL:     DefaultBaseURL,
		ModelName:   modelName,
		Temperature: temperature,
		Client:      &http.Client{Timeout: 180 * time.Second},
		Retry:       reliability.DefaultPolicy,
	}
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	msg, err := p.ChatWithTools(ctx, history, nil, opts...)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *GeminiProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDefinition, opts ...llm.Option) (*llm.Message, error) {
	options := llm.Apply(llm.Options{Temperature: p.Temperature, Model: p.ModelName}, opts...)

	payload := buildRequest(history, tools, options)
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var geminiRes generateResponse
	err = reliability.Do(ctx, p.Retry, func(ctx context.Context) error {
		return p.post(ctx, options.Model, payloadJson, &geminiRes)
	})
	if err != nil {
		return nil, err
	}

	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0].Content == nil {
		return nil, errors.New("gemini returned no candidates")
	}

	out := &llm.Message{Role: llm.RoleAssistant}
	var text strings.Builder
	for _, pt := range geminiRes.Candidates[0].Content.Parts {
		if pt.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:   "call_" + uuid.NewString()[:8],
				Name: pt.FunctionCall.Name,
				Args: pt.FunctionCall.Args,
			})
			continue
		}
		text.WriteString(pt.Text)
	}
	out.Content = text.String()
	return out, nil
}

func (p *GeminiProvider) post(ctx context.Context, model string, body []byte, into *generateResponse) error {
	model = strings.TrimPrefix(model, "models/")
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.BaseURL, model)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return &reliability.RetryableError{Err: fmt.Errorf("gemini request failed: %w", err)}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("status error, got status %d. with response body %s", res.StatusCode, string(resBody))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return &reliability.RetryableError{Err: statusErr}
		}
		return statusErr
	}

	if err := json.Unmarshal(resBody, into); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// buildRequest maps generic messages onto Gemini contents. System messages are
// folded into the system instruction; tool results become functionResponse parts.
func buildRequest(history []llm.Message, tools []llm.ToolDefinition, options llm.Options) *generateRequest {
	req := &generateRequest{
		GenerationConfig: &generationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}

	var system []string
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			c := &content{Role: ChatMessageRoleModel}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				c.Parts = append(c.Parts, &part{FunctionCall: &functionCall{Name: tc.Name, Args: tc.Args}})
			}
			if len(c.Parts) > 0 {
				req.Contents = append(req.Contents, c)
			}
		case llm.RoleTool:
			req.Contents = append(req.Contents, &content{
				Role: ChatMessageRoleUser,
				Parts: []*part{{FunctionResponse: &functionResponse{
					Name:     msg.Name,
					Response: map[string]interface{}{"result": msg.Content},
				}}},
			})
		default:
			req.Contents = append(req.Contents, &content{
				Role:  ChatMessageRoleUser,
				Parts: []*part{{Text: msg.Content}},
			})
		}
	}

	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []*part{{Text: strings.Join(system, "\n\n")}}}
	}

	if len(tools) > 0 {
		decls := make([]*functionDeclaration, len(tools))
		for i, t := range tools {
			decls[i] = &functionDeclaration{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
		}
		req.Tools = []*tool{{FunctionDeclarations: decls}}
	}
	return req
}
