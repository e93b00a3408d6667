package entity

import (
	"time"

	"github.com/google/uuid"
)

// Corpus names one of the two permission-scoped chunk collections.
type Corpus string

const (
	CorpusUser  Corpus = "user"
	CorpusAdmin Corpus = "admin"
)

func (c Corpus) Valid() bool {
	return c == CorpusUser || c == CorpusAdmin
}

func (c Corpus) TableName() string {
	if c == CorpusAdmin {
		return "admin_document_chunks"
	}
	return "user_document_chunks"
}

type DocumentChunk struct {
	Id               uuid.UUID
	Corpus           Corpus
	SourceFileId     string
	Content          string
	UploaderUsername string
	EmbeddingValue   []float32
	EmbeddingModel   string
	ChunkIndex       int
	CreatedAt        time.Time
}

// ScoredDocumentChunk is a chunk with the score of the search that found it.
type ScoredDocumentChunk struct {
	Chunk *DocumentChunk
	Score float64
}
