package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/model"
	"agentic-rag-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.Open(context.Background(), database.DefaultConfig(dsn))
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer database.Close(db)

	log.Println("Step 1: Setting up extensions...")
	for _, sql := range []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	} {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute setup SQL %q: %v", sql, err)
		}
	}

	// 3. One table per corpus, same schema
	log.Println("Step 2: Migrating chunk tables...")
	for _, corpus := range []entity.Corpus{entity.CorpusUser, entity.CorpusAdmin} {
		table := corpus.TableName()
		if err := db.Table(table).AutoMigrate(&model.DocumentChunk{}); err != nil {
			log.Fatalf("Error: AutoMigrate failed for %s: %v", table, err)
		}

		indexes := []string{
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding_value vector_cosine_ops);`, table, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_content_fts ON %s USING gin (to_tsvector('simple', content));`, table, table),
		}
		for _, sql := range indexes {
			if err := db.Exec(sql).Error; err != nil {
				log.Printf("Warn: Failed to create index on %s: %v. Continuing...", table, err)
			}
		}
		log.Printf("Migrated %s", table)
	}

	log.Println("✅ Migration completed")
}
