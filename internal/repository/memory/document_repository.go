package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/repository/contract"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
)

type indexedChunk struct {
	Content string `json:"content"`
	Owner   string `json:"owner"`
}

type corpusIndex struct {
	chunks map[string]*entity.DocumentChunk
	order  []string
	text   bleve.Index
}

// DocumentRepository keeps both corpora in process: vectors are scored by
// brute-force cosine, keywords through an in-memory bleve index.
type DocumentRepository struct {
	mu      sync.RWMutex
	corpora map[entity.Corpus]*corpusIndex
}

func NewDocumentRepository() (*DocumentRepository, error) {
	r := &DocumentRepository{corpora: make(map[entity.Corpus]*corpusIndex)}
	for _, c := range []entity.Corpus{entity.CorpusUser, entity.CorpusAdmin} {
		idx, err := bleve.NewMemOnly(newIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index for %s: %w", c, err)
		}
		r.corpora[c] = &corpusIndex{chunks: make(map[string]*entity.DocumentChunk), text: idx}
	}
	return r, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("owner", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

func (r *DocumentRepository) corpus(c entity.Corpus) (*corpusIndex, error) {
	ci, ok := r.corpora[c]
	if !ok {
		return nil, fmt.Errorf("unknown corpus %q", c)
	}
	return ci, nil
}

func (r *DocumentRepository) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(chunk)
}

func (r *DocumentRepository) insert(chunk *entity.DocumentChunk) error {
	ci, err := r.corpus(chunk.Corpus)
	if err != nil {
		return err
	}
	if chunk.Id == uuid.Nil {
		chunk.Id = uuid.New()
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	id := chunk.Id.String()
	if err := ci.text.Index(id, indexedChunk{Content: chunk.Content, Owner: chunk.UploaderUsername}); err != nil {
		return err
	}
	if _, exists := ci.chunks[id]; !exists {
		ci.order = append(ci.order, id)
	}
	stored := *chunk
	ci.chunks[id] = &stored
	return nil
}

func (r *DocumentRepository) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		if err := r.insert(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepository) DeleteBySourceFile(ctx context.Context, corpus entity.Corpus, sourceFileId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteSource(corpus, sourceFileId)
}

func (r *DocumentRepository) deleteSource(corpus entity.Corpus, sourceFileId string) error {
	ci, err := r.corpus(corpus)
	if err != nil {
		return err
	}
	kept := ci.order[:0]
	for _, id := range ci.order {
		if ci.chunks[id].SourceFileId == sourceFileId {
			if err := ci.text.Delete(id); err != nil {
				return err
			}
			delete(ci.chunks, id)
			continue
		}
		kept = append(kept, id)
	}
	ci.order = kept
	return nil
}

func (r *DocumentRepository) ReplaceSourceFile(ctx context.Context, corpus entity.Corpus, sourceFileId string, chunks []*entity.DocumentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.deleteSource(corpus, sourceFileId); err != nil {
		return err
	}
	for _, c := range chunks {
		c.Corpus = corpus
		c.SourceFileId = sourceFileId
		if err := r.insert(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepository) VectorSearch(ctx context.Context, q contract.VectorQuery) ([]*entity.ScoredDocumentChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ci, err := r.corpus(q.Corpus)
	if err != nil {
		return nil, err
	}
	owner := q.Owner
	if q.Corpus == entity.CorpusAdmin {
		owner = ""
	}

	var scored []*entity.ScoredDocumentChunk
	for _, id := range ci.order {
		c := ci.chunks[id]
		if owner != "" && c.UploaderUsername != owner {
			continue
		}
		if q.Model != "" && c.EmbeddingModel != q.Model {
			continue
		}
		if len(c.EmbeddingValue) != len(q.Vector) {
			continue
		}
		scored = append(scored, &entity.ScoredDocumentChunk{Chunk: copyChunk(c), Score: cosineSimilarity(q.Vector, c.EmbeddingValue)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return truncate(scored, q.Limit), nil
}

func (r *DocumentRepository) TextSearch(ctx context.Context, q contract.TextQuery) ([]*entity.ScoredDocumentChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ci, err := r.corpus(q.Corpus)
	if err != nil {
		return nil, err
	}

	match := bleve.NewMatchQuery(q.Text)
	match.SetField("content")
	var query blevequery.Query = match
	if q.Owner != "" {
		ownerQuery := bleve.NewTermQuery(q.Owner)
		ownerQuery.SetField("owner")
		query = bleve.NewConjunctionQuery(match, ownerQuery)
	}

	req := bleve.NewSearchRequest(query)
	req.Size = q.Limit
	if req.Size <= 0 {
		req.Size = 10
	}
	res, err := ci.text.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	out := make([]*entity.ScoredDocumentChunk, 0, len(res.Hits))
	for _, hit := range res.Hits {
		c, ok := ci.chunks[hit.ID]
		if !ok {
			continue
		}
		out = append(out, &entity.ScoredDocumentChunk{Chunk: copyChunk(c), Score: hit.Score})
	}
	return out, nil
}

func (r *DocumentRepository) List(ctx context.Context, q contract.ListQuery) ([]*entity.DocumentChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ci, err := r.corpus(q.Corpus)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	var out []*entity.DocumentChunk
	skipped := 0
	// Newest first
	for i := len(ci.order) - 1; i >= 0 && len(out) < limit; i-- {
		c := ci.chunks[ci.order[i]]
		if q.Owner != "" && c.UploaderUsername != q.Owner {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, copyChunk(c))
	}
	return out, nil
}

func (r *DocumentRepository) Count(ctx context.Context, corpus entity.Corpus, owner string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ci, err := r.corpus(corpus)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range ci.chunks {
		if owner == "" || c.UploaderUsername == owner {
			n++
		}
	}
	return n, nil
}

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *DocumentRepository) Close() error {
	var firstErr error
	for _, ci := range r.corpora {
		if err := ci.text.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func copyChunk(c *entity.DocumentChunk) *entity.DocumentChunk {
	out := *c
	return &out
}

func truncate(in []*entity.ScoredDocumentChunk, limit int) []*entity.ScoredDocumentChunk {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
