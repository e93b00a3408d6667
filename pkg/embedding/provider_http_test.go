package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"agentic-rag-be/pkg/reliability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestGeminiProvider_Generate(t *testing.T) {
	var got geminiEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"embedding":{"values":[3,4]}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("key", "text-embedding-004", 2)
	p.BaseURL = srv.URL

	res, err := p.Generate(context.Background(), "refund policy", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, "models/text-embedding-004", p.ModelName())
	assert.Equal(t, "refund policy", got.Content.Parts[0].Text)
	assert.Equal(t, TaskRetrievalQuery, got.TaskType)
	assert.Equal(t, 2, got.OutputDimensionality)
	assert.InDelta(t, 0.6, res.Embedding.Values[0], 1e-6)
	assert.InDelta(t, 1.0, norm(res.Embedding.Values), 1e-6)
}

func TestGeminiProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			p := NewGeminiProvider("key", "m", 0)
			p.BaseURL = srv.URL

			_, err := p.Generate(context.Background(), "x", TaskRetrievalQuery)
			require.Error(t, err)
			var re *reliability.RetryableError
			assert.Equal(t, tt.retryable, errors.As(err, &re))
		})
	}
}

func TestOllamaProvider_Generate(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0,2,0]]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "nomic-embed-text")

	res, err := p.Generate(context.Background(), "hoàn tiền", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, "search_query: hoàn tiền", got.Input)
	assert.True(t, got.Truncate)
	assert.Equal(t, []float32{0, 1, 0}, res.Embedding.Values)
}

func TestOllamaProvider_TaskPrefix(t *testing.T) {
	nomic := NewOllamaProvider("", "")
	other := NewOllamaProvider("", "mxbai-embed-large")

	assert.Equal(t, "search_document: ", nomic.taskPrefix(TaskRetrievalDocument))
	assert.Equal(t, "", nomic.taskPrefix("CLUSTERING"))
	assert.Equal(t, "", other.taskPrefix(TaskRetrievalQuery))
}

func TestOllamaProvider_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "nomic-embed-text").Generate(context.Background(), "x", "")
	assert.Error(t, err)
}
