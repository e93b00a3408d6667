package service

import (
	"context"
	"fmt"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/rag/search"

	"github.com/gofiber/fiber/v2"
)

const defaultSearchLimit = 10

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentSearcher is implemented by search.Store.
type DocumentSearcher interface {
	VectorSearch(ctx context.Context, corpus entity.Corpus, vector []float32, owner string, limit, candidates int) search.Result
	HybridSearch(ctx context.Context, corpus entity.Corpus, vector []float32, text, owner string, limit, candidates int) search.Result
	List(ctx context.Context, corpus entity.Corpus, owner string, limit int) search.Result
}

type ISearchService interface {
	SearchUserDocuments(ctx context.Context, req *dto.SearchUserDocumentsRequest, clientID string) (*dto.SearchResponse, error)
	SearchAdminDocuments(ctx context.Context, req *dto.SearchAdminDocumentsRequest, clientID string) (*dto.SearchResponse, error)
}

type searchService struct {
	embedder QueryEmbedder
	store    DocumentSearcher
	logger   logger.ILogger
}

func NewSearchService(embedder QueryEmbedder, store DocumentSearcher, log logger.ILogger) ISearchService {
	return &searchService{embedder: embedder, store: store, logger: log}
}

func (s *searchService) SearchUserDocuments(ctx context.Context, req *dto.SearchUserDocumentsRequest, clientID string) (*dto.SearchResponse, error) {
	userID := req.UserID
	if userID == "" {
		userID = clientID
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	searchType := req.SearchType
	if searchType == "" {
		searchType = dto.SearchTypeHybrid
	}
	s.logger.Info("API", "Searching user documents", map[string]interface{}{
		"user_id":     userID,
		"query":       req.Query,
		"search_type": searchType,
	})

	var res search.Result
	switch {
	case searchType == dto.SearchTypeHybrid && req.Query != "":
		vector, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			s.logger.Warn("API", "Query embedding failed", map[string]interface{}{"error": err.Error()})
			res = search.Result{Outcome: search.OutcomeFailed, Err: err}
			break
		}
		res = s.store.HybridSearch(ctx, entity.CorpusUser, vector, req.Query, userID, limit, limit*2)
	case searchType == dto.SearchTypeVector && req.Query != "":
		vector, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			s.logger.Warn("API", "Query embedding failed", map[string]interface{}{"error": err.Error()})
			res = search.Result{Outcome: search.OutcomeFailed, Err: err}
			break
		}
		res = s.store.VectorSearch(ctx, entity.CorpusUser, vector, userID, limit, limit*2)
	default:
		res = s.store.List(ctx, entity.CorpusUser, userID, limit)
	}

	return &dto.SearchResponse{
		UserID:       userID,
		SearchQuery:  req.Query,
		SearchType:   searchType,
		Outcome:      res.Outcome,
		ResultsCount: len(res.Documents),
		Results:      nonNil(res.Documents),
		Success:      true,
	}, nil
}

func (s *searchService) SearchAdminDocuments(ctx context.Context, req *dto.SearchAdminDocumentsRequest, clientID string) (*dto.SearchResponse, error) {
	userID := req.UserID
	if userID == "" {
		userID = clientID
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	s.logger.Info("API", "Searching admin documents", map[string]interface{}{"user_id": userID, "query": req.Query})

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		s.logger.Error("API", "Query embedding failed", map[string]interface{}{"error": err.Error()})
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to generate embedding for query: %v", err))
	}
	res := s.store.VectorSearch(ctx, entity.CorpusAdmin, vector, "", limit, limit*2)

	return &dto.SearchResponse{
		UserID:       userID,
		SearchQuery:  req.Query,
		Outcome:      res.Outcome,
		ResultsCount: len(res.Documents),
		Results:      nonNil(res.Documents),
		Success:      true,
	}, nil
}

func nonNil(docs []search.RetrievedDocument) []search.RetrievedDocument {
	if docs == nil {
		return []search.RetrievedDocument{}
	}
	return docs
}
