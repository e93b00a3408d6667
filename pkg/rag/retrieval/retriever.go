package retrieval

import (
	"context"
	"time"

	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/rag/search"

	"golang.org/x/sync/errgroup"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the part of search.Store the retriever drives.
type Searcher interface {
	VectorSearch(ctx context.Context, corpus entity.Corpus, vector []float32, owner string, limit, candidates int) search.Result
	HybridSearch(ctx context.Context, corpus entity.Corpus, vector []float32, text, owner string, limit, candidates int) search.Result
}

type Limits struct {
	UserLimit       int
	UserCandidates  int
	AdminLimit      int
	AdminCandidates int
}

var DefaultLimits = Limits{UserLimit: 10, UserCandidates: 20, AdminLimit: 5, AdminCandidates: 10}

// Result holds both corpora. A corpus whose search failed carries an empty
// list and a failed outcome; the other corpus is unaffected.
type Result struct {
	UserDocuments  []search.RetrievedDocument
	AdminDocuments []search.RetrievedDocument
	UserOutcome    search.Outcome
	AdminOutcome   search.Outcome
	EmbeddingTime  time.Duration
	SearchTime     time.Duration
}

type Retriever struct {
	embedder Embedder
	searcher Searcher
	limits   Limits
	logger   logger.ILogger
}

func NewRetriever(embedder Embedder, searcher Searcher, limits Limits, log logger.ILogger) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		limits:   limits,
		logger:   log,
	}
}

// RetrieveParallel embeds the query once and searches both corpora
// concurrently with that vector.
func (r *Retriever) RetrieveParallel(ctx context.Context, query, userID string) Result {
	start := time.Now()
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("RETRIEVER", "Failed to generate query embedding", map[string]interface{}{"error": err.Error()})
		return Result{UserOutcome: search.OutcomeFailed, AdminOutcome: search.OutcomeFailed, EmbeddingTime: time.Since(start)}
	}
	embeddingTime := time.Since(start)

	var userRes, adminRes search.Result
	searchStart := time.Now()

	var g errgroup.Group
	g.SetLimit(2)
	g.Go(func() error {
		userRes = r.searcher.HybridSearch(ctx, entity.CorpusUser, vector, query, userID, r.limits.UserLimit, r.limits.UserCandidates)
		return nil
	})
	g.Go(func() error {
		adminRes = r.searcher.VectorSearch(ctx, entity.CorpusAdmin, vector, "", r.limits.AdminLimit, r.limits.AdminCandidates)
		return nil
	})
	_ = g.Wait()

	res := Result{
		UserDocuments:  userRes.Documents,
		AdminDocuments: adminRes.Documents,
		UserOutcome:    userRes.Outcome,
		AdminOutcome:   adminRes.Outcome,
		EmbeddingTime:  embeddingTime,
		SearchTime:     time.Since(searchStart),
	}
	r.logger.Info("RETRIEVER", "Parallel retrieval completed", map[string]interface{}{
		"user_docs":     len(res.UserDocuments),
		"admin_docs":    len(res.AdminDocuments),
		"embedding_ms":  res.EmbeddingTime.Milliseconds(),
		"search_ms":     res.SearchTime.Milliseconds(),
		"user_outcome":  res.UserOutcome,
		"admin_outcome": res.AdminOutcome,
	})
	return res
}

// RetrieveSequential searches the user corpus, then the admin corpus.
// Each lookup embeds on its own, relying on the embedding cache for reuse.
func (r *Retriever) RetrieveSequential(ctx context.Context, query, userID string) Result {
	start := time.Now()
	user := r.FindUserDocuments(ctx, query, userID)
	admin := r.FindAdminDocuments(ctx, query)
	return Result{
		UserDocuments:  user.Documents,
		AdminDocuments: admin.Documents,
		UserOutcome:    user.Outcome,
		AdminOutcome:   admin.Outcome,
		SearchTime:     time.Since(start),
	}
}

// FindUserDocuments runs a hybrid search over the owner's private corpus.
func (r *Retriever) FindUserDocuments(ctx context.Context, query, userID string) search.Result {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("RETRIEVER", "Failed to generate embedding for user search", map[string]interface{}{"error": err.Error()})
		return search.Result{Outcome: search.OutcomeFailed, Err: err}
	}
	res := r.searcher.HybridSearch(ctx, entity.CorpusUser, vector, query, userID, r.limits.UserLimit, r.limits.UserCandidates)
	r.logger.Info("RETRIEVER", "User documents retrieved", map[string]interface{}{"count": len(res.Documents), "outcome": res.Outcome})
	return res
}

// FindAdminDocuments runs a vector search over the shared corpus.
func (r *Retriever) FindAdminDocuments(ctx context.Context, query string) search.Result {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("RETRIEVER", "Failed to generate embedding for admin search", map[string]interface{}{"error": err.Error()})
		return search.Result{Outcome: search.OutcomeFailed, Err: err}
	}
	res := r.searcher.VectorSearch(ctx, entity.CorpusAdmin, vector, "", r.limits.AdminLimit, r.limits.AdminCandidates)
	r.logger.Info("RETRIEVER", "Admin documents retrieved", map[string]interface{}{"count": len(res.Documents), "outcome": res.Outcome})
	return res
}
