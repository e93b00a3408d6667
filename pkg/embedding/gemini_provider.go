package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentic-rag-be/pkg/reliability"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"task_type,omitempty"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type GeminiProvider struct {
	ApiKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Client     *http.Client
}

func NewGeminiProvider(apiKey, model string, dimensions int) *GeminiProvider {
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &GeminiProvider{
		ApiKey:     apiKey,
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		Model:      model,
		Dimensions: dimensions,
		Client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GeminiProvider) ModelName() string {
	return p.Model
}

// Generate calls embedContent. Vectors truncated by outputDimensionality are
// not unit length, so every result is normalized.
func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	body, err := json.Marshal(geminiEmbedRequest{
		Model:                p.Model,
		Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: p.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s:embedContent", strings.TrimRight(p.BaseURL, "/"), p.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, &reliability.RetryableError{Err: err}
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return nil, &reliability.RetryableError{Err: statusErr}
		}
		return nil, statusErr
	}

	var out EmbeddingResponse
	if err := json.Unmarshal(resByte, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding")
	}
	return response(normalizeVector(out.Embedding.Values)), nil
}
