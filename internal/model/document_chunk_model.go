package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DocumentChunk backs both user_document_chunks and admin_document_chunks;
// the repository picks the table per corpus.
type DocumentChunk struct {
	Id               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceFileId     string          `gorm:"type:varchar(255);index"`
	Content          string          `gorm:"type:text"`
	UploaderUsername string          `gorm:"type:varchar(255);index"`
	EmbeddingValue   pgvector.Vector `gorm:"type:vector(768)"`
	EmbeddingModel   string          `gorm:"type:varchar(128);index"`
	ChunkIndex       int             `gorm:"default:0"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
}
