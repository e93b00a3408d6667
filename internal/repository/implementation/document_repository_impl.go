package implementation

import (
	"context"
	"fmt"

	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/mapper"
	"agentic-rag-be/internal/model"
	"agentic-rag-be/internal/repository/contract"
	"agentic-rag-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const (
	defaultSearchLimit = 10
	maxEfSearch        = 1000
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentRepositoryImpl) table(ctx context.Context, corpus entity.Corpus) *gorm.DB {
	return r.db.WithContext(ctx).Table(corpus.TableName())
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.mapper.ToModel(chunk)
	if err := r.table(ctx, chunk.Corpus).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m, chunk.Corpus)
	return nil
}

func (r *DocumentRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	byCorpus := make(map[entity.Corpus][]*entity.DocumentChunk)
	for _, c := range chunks {
		byCorpus[c.Corpus] = append(byCorpus[c.Corpus], c)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for corpus, group := range byCorpus {
			if err := r.insert(tx, corpus, group); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DocumentRepositoryImpl) insert(tx *gorm.DB, corpus entity.Corpus, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := tx.Table(corpus.TableName()).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m, corpus)
	}
	return nil
}

func (r *DocumentRepositoryImpl) DeleteBySourceFile(ctx context.Context, corpus entity.Corpus, sourceFileId string) error {
	q := specification.All(r.table(ctx, corpus), specification.BySourceFile{SourceFileId: sourceFileId})
	return q.Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentRepositoryImpl) ReplaceSourceFile(ctx context.Context, corpus entity.Corpus, sourceFileId string, chunks []*entity.DocumentChunk) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := specification.BySourceFile{SourceFileId: sourceFileId}.Apply(tx.Table(corpus.TableName()))
		if err := del.Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		for _, c := range chunks {
			c.Corpus = corpus
			c.SourceFileId = sourceFileId
		}
		return r.insert(tx, corpus, chunks)
	})
}

// VectorSearch ranks by cosine similarity. Candidates widens the HNSW
// candidate list for this query only.
func (r *DocumentRepositoryImpl) VectorSearch(ctx context.Context, q contract.VectorQuery) ([]*entity.ScoredDocumentChunk, error) {
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	owner := q.Owner
	if q.Corpus == entity.CorpusAdmin {
		owner = ""
	}

	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(q.Vector)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if q.Candidates > 0 {
			ef := q.Candidates
			if ef > maxEfSearch {
				ef = maxEfSearch
			}
			// SET does not accept bind parameters; ef is a bounded int.
			if err := tx.Exec(fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", ef)).Error; err != nil {
				return err
			}
		}

		query := tx.Table(q.Corpus.TableName()).
			Select("*, 1 - (embedding_value <=> ?) as similarity", queryVector)
		query = specification.All(query,
			specification.ByUploader{Username: owner},
			specification.ByEmbeddingModel{Model: q.Model},
		)
		return query.
			Order(gorm.Expr("embedding_value <=> ?", queryVector)).
			Limit(q.Limit).
			Scan(&results).Error
	})
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredDocumentChunk, len(results))
	for i := range results {
		scored[i] = &entity.ScoredDocumentChunk{
			Chunk: r.mapper.ToEntity(&results[i].DocumentChunk, q.Corpus),
			Score: results[i].Similarity,
		}
	}
	return scored, nil
}

// TextSearch ranks owner-scoped chunks with ts_rank over the 'simple' config.
func (r *DocumentRepositoryImpl) TextSearch(ctx context.Context, q contract.TextQuery) ([]*entity.ScoredDocumentChunk, error) {
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}

	type result struct {
		model.DocumentChunk
		Rank float64
	}
	var results []result

	query := r.table(ctx, q.Corpus).
		Select("*, ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', ?)) as rank", q.Text)
	query = specification.All(query,
		specification.FullTextMatch{Query: q.Text},
		specification.ByUploader{Username: q.Owner},
		specification.OrderBy{Field: "rank", Desc: true},
		specification.Pagination{Limit: q.Limit},
	)
	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredDocumentChunk, len(results))
	for i := range results {
		scored[i] = &entity.ScoredDocumentChunk{
			Chunk: r.mapper.ToEntity(&results[i].DocumentChunk, q.Corpus),
			Score: results[i].Rank,
		}
	}
	return scored, nil
}

func (r *DocumentRepositoryImpl) List(ctx context.Context, q contract.ListQuery) ([]*entity.DocumentChunk, error) {
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	var models []*model.DocumentChunk
	query := specification.All(r.table(ctx, q.Corpus),
		specification.ByUploader{Username: q.Owner},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: q.Limit, Offset: q.Offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models, q.Corpus), nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, corpus entity.Corpus, owner string) (int64, error) {
	var count int64
	query := specification.All(r.table(ctx, corpus), specification.ByUploader{Username: owner})
	err := query.Count(&count).Error
	return count, err
}

func (r *DocumentRepositoryImpl) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
