package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/internal/repository/contract"

	"golang.org/x/sync/errgroup"
)

const (
	VectorWeight = 0.7
	TextWeight   = 0.3
	// OverlapBoost scales the second method's weighted score when a document
	// was found by both methods.
	OverlapBoost  = 0.5
	FallbackScore = 0.5
)

var ErrStoreUnavailable = errors.New("document store unavailable")

// Observer receives one call per finished search.
type Observer interface {
	ObserveSearch(corpus, outcome string)
}

// Store layers hybrid merging and graceful fallback over a DocumentRepository.
// It never returns an error to callers; failures show up in Result.Outcome.
type Store struct {
	repo     contract.DocumentRepository
	model    string
	logger   logger.ILogger
	observer Observer
}

func NewStore(repo contract.DocumentRepository, embeddingModel string, log logger.ILogger) *Store {
	return &Store{repo: repo, model: embeddingModel, logger: log}
}

func (s *Store) WithObserver(o Observer) *Store {
	s.observer = o
	return s
}

func (s *Store) observe(corpus entity.Corpus, res Result) Result {
	if s.observer != nil {
		s.observer.ObserveSearch(string(corpus), string(res.Outcome))
	}
	return res
}

// VectorSearch scopes the user corpus to owner; the admin corpus is shared.
func (s *Store) VectorSearch(ctx context.Context, corpus entity.Corpus, vector []float32, owner string, limit, candidates int) Result {
	hits, err := s.repo.VectorSearch(ctx, contract.VectorQuery{
		Corpus: corpus, Vector: vector, Model: s.model, Owner: owner, Limit: limit, Candidates: candidates,
	})
	if err != nil {
		s.logger.Warn("STORE", "Vector search failed, falling back to listing", map[string]interface{}{
			"corpus": corpus, "error": err.Error(),
		})
		return s.observe(corpus, s.fallback(ctx, corpus, owner, limit, err))
	}

	docs := make([]RetrievedDocument, len(hits))
	for i, h := range hits {
		docs[i] = FromChunk(h.Chunk, h.Score)
	}
	s.logger.Debug("STORE", "Vector search completed", map[string]interface{}{"corpus": corpus, "count": len(docs)})
	return s.observe(corpus, Result{Documents: docs, Outcome: OutcomeOK})
}

// HybridSearch runs vector and keyword search concurrently and merges them.
// Each method fails on its own; only when both fail does it fall back to a
// plain listing of the owner's chunks.
func (s *Store) HybridSearch(ctx context.Context, corpus entity.Corpus, vector []float32, text, owner string, limit, candidates int) Result {
	var (
		vectorHits, textHits []*entity.ScoredDocumentChunk
		vectorErr, textErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	g.Go(func() error {
		vectorHits, vectorErr = s.repo.VectorSearch(gctx, contract.VectorQuery{
			Corpus: corpus, Vector: vector, Model: s.model, Owner: owner, Limit: limit, Candidates: candidates,
		})
		return nil
	})
	g.Go(func() error {
		if text == "" {
			return nil
		}
		textHits, textErr = s.repo.TextSearch(gctx, contract.TextQuery{
			Corpus: corpus, Text: text, Owner: owner, Limit: limit,
		})
		return nil
	})
	_ = g.Wait()

	if vectorErr != nil {
		s.logger.Warn("STORE", "Vector half of hybrid search failed", map[string]interface{}{"corpus": corpus, "error": vectorErr.Error()})
	}
	if textErr != nil {
		s.logger.Warn("STORE", "Text half of hybrid search failed", map[string]interface{}{"corpus": corpus, "error": textErr.Error()})
	}
	if vectorErr != nil && (textErr != nil || text == "") {
		return s.observe(corpus, s.fallback(ctx, corpus, owner, limit, errors.Join(vectorErr, textErr)))
	}

	docs := Merge(vectorHits, textHits, limit)
	outcome := OutcomeOK
	var err error
	if vectorErr != nil || textErr != nil {
		outcome = OutcomeDegraded
		err = errors.Join(vectorErr, textErr)
	}
	s.logger.Debug("STORE", "Hybrid search completed", map[string]interface{}{
		"corpus": corpus, "vector_hits": len(vectorHits), "text_hits": len(textHits), "merged": len(docs),
	})
	return s.observe(corpus, Result{Documents: docs, Outcome: outcome, Err: err})
}

// List returns the owner's chunks unscored, newest first.
func (s *Store) List(ctx context.Context, corpus entity.Corpus, owner string, limit int) Result {
	chunks, err := s.repo.List(ctx, contract.ListQuery{Corpus: corpus, Owner: owner, Limit: limit})
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}
	docs := make([]RetrievedDocument, len(chunks))
	for i, c := range chunks {
		docs[i] = FromChunk(c, 0)
	}
	return Result{Documents: docs, Outcome: OutcomeOK}
}

// fallback lists chunks with a flat score. The user corpus stays owner-scoped
// so a failing index never exposes another user's documents.
func (s *Store) fallback(ctx context.Context, corpus entity.Corpus, owner string, limit int, cause error) Result {
	if corpus == entity.CorpusAdmin {
		owner = ""
	}
	chunks, err := s.repo.List(ctx, contract.ListQuery{Corpus: corpus, Owner: owner, Limit: limit})
	if err != nil {
		s.logger.Error("STORE", "Fallback listing also failed", map[string]interface{}{"corpus": corpus, "error": err.Error()})
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.Join(cause, err))}
	}
	docs := make([]RetrievedDocument, len(chunks))
	for i, c := range chunks {
		docs[i] = FromChunk(c, FallbackScore)
	}
	return Result{Documents: docs, Outcome: OutcomeDegraded, Err: cause}
}

// Merge dedupes by chunk id and blends scores: vector-only hits score
// v*0.7, text-only hits t*0.3, and hits found by both v*0.7 + t*0.3*0.5.
// Ties keep vector order first, then text order.
func Merge(vectorHits, textHits []*entity.ScoredDocumentChunk, limit int) []RetrievedDocument {
	merged := make([]RetrievedDocument, 0, len(vectorHits)+len(textHits))
	index := make(map[string]int)

	for _, h := range vectorHits {
		id := h.Chunk.Id.String()
		if _, seen := index[id]; seen {
			continue
		}
		index[id] = len(merged)
		merged = append(merged, FromChunk(h.Chunk, h.Score*VectorWeight))
	}
	for _, h := range textHits {
		id := h.Chunk.Id.String()
		weighted := h.Score * TextWeight
		if i, seen := index[id]; seen {
			merged[i].Score += weighted * OverlapBoost
			continue
		}
		index[id] = len(merged)
		merged = append(merged, FromChunk(h.Chunk, weighted))
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
