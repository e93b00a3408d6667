package mapper

import (
	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk, corpus entity.Corpus) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	return &entity.DocumentChunk{
		Id:               c.Id,
		Corpus:           corpus,
		SourceFileId:     c.SourceFileId,
		Content:          c.Content,
		UploaderUsername: c.UploaderUsername,
		EmbeddingValue:   c.EmbeddingValue.Slice(),
		EmbeddingModel:   c.EmbeddingModel,
		ChunkIndex:       c.ChunkIndex,
		CreatedAt:        c.CreatedAt,
	}
}

func (m *DocumentChunkMapper) ToModel(e *entity.DocumentChunk) *model.DocumentChunk {
	if e == nil {
		return nil
	}

	return &model.DocumentChunk{
		Id:               e.Id,
		SourceFileId:     e.SourceFileId,
		Content:          e.Content,
		UploaderUsername: e.UploaderUsername,
		EmbeddingValue:   pgvector.NewVector(e.EmbeddingValue),
		EmbeddingModel:   e.EmbeddingModel,
		ChunkIndex:       e.ChunkIndex,
		CreatedAt:        e.CreatedAt,
	}
}

func (m *DocumentChunkMapper) ToEntities(chunks []*model.DocumentChunk, corpus entity.Corpus) []*entity.DocumentChunk {
	entities := make([]*entity.DocumentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c, corpus)
	}
	return entities
}

func (m *DocumentChunkMapper) ToModels(chunks []*entity.DocumentChunk) []*model.DocumentChunk {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
