package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentic-rag-be/internal/config"
	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/repository/implementation"
	"agentic-rag-be/pkg/database"
	"agentic-rag-be/pkg/embedding"
	"agentic-rag-be/pkg/reliability"
	"agentic-rag-be/pkg/utils"

	"github.com/google/uuid"
)

// seed splits text files into chunks, embeds them and stores them in one corpus.
//
//	go run ./cmd/seed -corpus admin -dir ./docs/policies
//	go run ./cmd/seed -corpus user -owner user_1a2b3c4d5e6f7a8b -dir ./docs/mine
func main() {
	corpus := flag.String("corpus", "user", "target corpus: user or admin")
	owner := flag.String("owner", "admin", "uploader username stored on every chunk")
	dir := flag.String("dir", ".", "directory of .txt/.md files")
	chunkSize := flag.Int("chunk-size", 1000, "characters per chunk")
	overlap := flag.Int("overlap", 200, "characters shared by neighbouring chunks")
	flag.Parse()

	target := entity.Corpus(*corpus)
	if !target.Valid() {
		log.Fatalf("Error: unknown corpus %q", *corpus)
	}

	cfg := config.Load()
	db, err := database.Open(context.Background(), database.DefaultConfig(cfg.Database.Connection))
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	repo := implementation.NewDocumentRepository(db)

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "hash" {
		provider = embedding.NewHashProvider(cfg.Ai.EmbeddingDimensions)
	} else {
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDimensions)
	}
	embedder := embedding.NewService(provider, nil).WithRetry(reliability.DefaultPolicy)

	files, err := filepath.Glob(filepath.Join(*dir, "*"))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx := context.Background()
	total := 0
	for _, path := range files {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warn: skipping %s: %v", path, err)
			continue
		}

		texts := utils.SplitText(string(raw), *chunkSize, *overlap)
		vectors := embedder.EmbedBatch(ctx, texts, embedding.TaskRetrievalDocument)
		sourceID := filepath.Base(path)

		chunks := make([]*entity.DocumentChunk, 0, len(texts))
		for i, text := range texts {
			if vectors[i] == nil {
				log.Printf("Warn: no embedding for chunk %d of %s", i, sourceID)
				continue
			}
			chunks = append(chunks, &entity.DocumentChunk{
				Id:               uuid.New(),
				Corpus:           target,
				SourceFileId:     sourceID,
				Content:          text,
				UploaderUsername: *owner,
				EmbeddingValue:   vectors[i],
				EmbeddingModel:   embedder.ModelName(),
				ChunkIndex:       i,
				CreatedAt:        time.Now(),
			})
		}

		if err := repo.ReplaceSourceFile(ctx, target, sourceID, chunks); err != nil {
			log.Printf("Error: failed to store %s: %v", sourceID, err)
			continue
		}
		total += len(chunks)
		log.Printf("Seeded %s: %d chunks", sourceID, len(chunks))
	}

	log.Printf("✅ Seeded %d chunks into %s", total, target.TableName())
}
