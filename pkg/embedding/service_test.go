package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-rag-be/pkg/reliability"
)

type countingProvider struct {
	calls atomic.Int32
	fail  map[string]error
}

func (p *countingProvider) ModelName() string { return "counting" }

func (p *countingProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	p.calls.Add(1)
	if err, ok := p.fail[text]; ok {
		return nil, err
	}
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: []float32{float32(len(text)), 1}}}, nil
}

func TestService_EmbedUsesCache(t *testing.T) {
	provider := &countingProvider{}
	svc := NewService(provider, nil)

	first, err := svc.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, 1, svc.CacheSize())
}

func TestService_EmbedEmptyText(t *testing.T) {
	svc := NewService(&countingProvider{}, nil)

	_, err := svc.Embed(context.Background(), "   ")

	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, "counting", embErr.Model)
}

func TestService_EmbedRetriesTransientFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"embedding":{"values":[0.6,0.8]}}`))
	}))
	defer server.Close()

	provider := NewGeminiProvider("key", "text-embedding-004", 0)
	provider.BaseURL = server.URL
	svc := NewService(provider, nil).WithRetry(reliability.Policy{MaxRetries: 2, Base: time.Millisecond, Cap: time.Millisecond})

	vec, err := svc.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
	assert.Equal(t, int32(2), hits.Load())
}

func TestService_EmbedPermanentFailure(t *testing.T) {
	provider := &countingProvider{fail: map[string]error{"bad": errors.New("boom")}}
	svc := NewService(provider, nil)

	_, err := svc.Embed(context.Background(), "bad")

	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, 0, svc.CacheSize())
}

func TestService_EmbedBatchKeepsOrderAndNilSlots(t *testing.T) {
	provider := &countingProvider{fail: map[string]error{"b": errors.New("down")}}
	svc := NewService(provider, nil)

	out := svc.EmbedBatch(context.Background(), []string{"a", "b", "ccc", ""}, TaskRetrievalQuery)

	require.Len(t, out, 4)
	assert.Equal(t, []float32{1, 1}, out[0])
	assert.Nil(t, out[1])
	assert.Equal(t, []float32{3, 1}, out[2])
	assert.Nil(t, out[3])
}

func TestService_EmbedBatchManyItems(t *testing.T) {
	svc := NewService(NewHashProvider(16), nil)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("document number %d", i)
	}
	out := svc.EmbedBatch(context.Background(), texts, TaskRetrievalDocument)

	for i, vec := range out {
		assert.Len(t, vec, 16, "slot %d", i)
	}
}

type taskProvider struct{}

func (taskProvider) ModelName() string { return "task" }

func (taskProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if taskType == TaskRetrievalDocument {
		return response([]float32{2}), nil
	}
	return response([]float32{1}), nil
}

func TestService_TaskTypeSeparatesCacheEntries(t *testing.T) {
	svc := NewService(taskProvider{}, nil)
	ctx := context.Background()

	query, err := svc.Embed(ctx, "x")
	require.NoError(t, err)
	document, err := svc.EmbedDocument(ctx, "x")
	require.NoError(t, err)
	batch := svc.EmbedBatch(ctx, []string{"y", "x"}, TaskRetrievalDocument)

	assert.Equal(t, []float32{1}, query)
	assert.Equal(t, []float32{2}, document)
	assert.Equal(t, [][]float32{{2}, {2}}, batch)
	assert.Equal(t, 3, svc.CacheSize())
}
