package contract

import (
	"context"

	"agentic-rag-be/internal/entity"
)

type VectorQuery struct {
	Corpus     entity.Corpus
	Vector     []float32
	Model      string
	Owner      string // ignored for the admin corpus
	Limit      int
	Candidates int
}

type TextQuery struct {
	Corpus entity.Corpus
	Text   string
	Owner  string
	Limit  int
}

type ListQuery struct {
	Corpus entity.Corpus
	Owner  string
	Limit  int
	Offset int
}

// DocumentRepository stores chunks of both corpora and answers the primitive
// searches the hybrid search layer composes.
type DocumentRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteBySourceFile(ctx context.Context, corpus entity.Corpus, sourceFileId string) error
	// ReplaceSourceFile atomically swaps every chunk of one source file.
	ReplaceSourceFile(ctx context.Context, corpus entity.Corpus, sourceFileId string, chunks []*entity.DocumentChunk) error
	VectorSearch(ctx context.Context, q VectorQuery) ([]*entity.ScoredDocumentChunk, error)
	TextSearch(ctx context.Context, q TextQuery) ([]*entity.ScoredDocumentChunk, error)
	List(ctx context.Context, q ListQuery) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, corpus entity.Corpus, owner string) (int64, error)
	Ping(ctx context.Context) error
}
