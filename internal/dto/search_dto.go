package dto

import "agentic-rag-be/pkg/rag/search"

const (
	SearchTypeHybrid = "hybrid"
	SearchTypeVector = "vector"
	SearchTypeList   = "list"
)

type SearchUserDocumentsRequest struct {
	UserID     string `json:"user_id,omitempty"`
	Query      string `json:"query"`
	Limit      int    `json:"limit" validate:"omitempty,min=1,max=100"`
	SearchType string `json:"search_type" validate:"omitempty,oneof=hybrid vector list"`
}

type SearchAdminDocumentsRequest struct {
	UserID string `json:"user_id,omitempty"`
	Query  string `json:"query" validate:"required"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type SearchResponse struct {
	UserID       string                     `json:"user_id"`
	SearchQuery  string                     `json:"search_query"`
	SearchType   string                     `json:"search_type,omitempty"`
	Outcome      search.Outcome             `json:"outcome"`
	ResultsCount int                        `json:"results_count"`
	Results      []search.RetrievedDocument `json:"results"`
	Success      bool                       `json:"success"`
}
