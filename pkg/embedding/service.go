package embedding

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"agentic-rag-be/pkg/reliability"
)

const DefaultBatchConcurrency = 3

// Service embeds text through a provider and memoises the results.
type Service struct {
	provider    EmbeddingProvider
	cache       *Cache
	retry       reliability.Policy
	concurrency int
}

func NewService(provider EmbeddingProvider, cache *Cache) *Service {
	if cache == nil {
		cache = NewCache(DefaultCacheCapacity, DefaultCacheEvictBatch)
	}
	return &Service{
		provider:    provider,
		cache:       cache,
		retry:       reliability.DefaultPolicy,
		concurrency: DefaultBatchConcurrency,
	}
}

func (s *Service) WithRetry(p reliability.Policy) *Service {
	s.retry = p
	return s
}

func (s *Service) ModelName() string {
	return s.provider.ModelName()
}

func (s *Service) CacheSize() int {
	return s.cache.Len()
}

// Embed returns the query embedding of text, served from cache when possible.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text, TaskRetrievalQuery)
}

// EmbedDocument is Embed with the document task type, used at ingestion.
func (s *Service) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text, TaskRetrievalDocument)
}

func (s *Service) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	model := s.provider.ModelName()
	if strings.TrimSpace(text) == "" {
		return nil, &EmbeddingError{Model: model, Err: ErrEmptyText}
	}

	key := CacheKey(text, model, taskType)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	var res *EmbeddingResponse
	err := reliability.Do(ctx, s.retry, func(ctx context.Context) error {
		var genErr error
		res, genErr = s.provider.Generate(ctx, text, taskType)
		return genErr
	})
	if err != nil {
		return nil, &EmbeddingError{Model: model, Err: err}
	}

	vec := res.Embedding.Values
	s.cache.Put(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts under taskType with bounded concurrency. The result
// has one slot per input in the same order; a slot is nil when that item failed.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, taskType string) [][]float32 {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := s.embed(gctx, text, taskType)
			if err == nil {
				out[i] = vec
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}
