package search

import (
	"time"

	"agentic-rag-be/internal/entity"
)

// Outcome tells a caller whether an empty or short list means "nothing
// matched" or "the store could not answer properly".
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// RetrievedDocument is a chunk plus its retrieval score and, once reranked,
// the relevance score assigned by the reranker.
type RetrievedDocument struct {
	ID               string        `json:"id"`
	Corpus           entity.Corpus `json:"corpus"`
	SourceFileID     string        `json:"source_file_id,omitempty"`
	Content          string        `json:"content"`
	UploaderUsername string        `json:"uploader_username"`
	Score            float64       `json:"score"`
	NewScore         float64       `json:"new_score"`
	Reranked         bool          `json:"reranked"`
	CreatedAt        time.Time     `json:"created_at"`
}

func FromChunk(c *entity.DocumentChunk, score float64) RetrievedDocument {
	return RetrievedDocument{
		ID:               c.Id.String(),
		Corpus:           c.Corpus,
		SourceFileID:     c.SourceFileId,
		Content:          c.Content,
		UploaderUsername: c.UploaderUsername,
		Score:            score,
		CreatedAt:        c.CreatedAt,
	}
}

type Result struct {
	Documents []RetrievedDocument
	Outcome   Outcome
	Err       error
}

// RankScore is the reranker's score once the document has been reranked,
// otherwise its retrieval score.
func (d RetrievedDocument) RankScore() float64 {
	if d.Reranked {
		return d.NewScore
	}
	return d.Score
}
