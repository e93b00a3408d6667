package dto

import (
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/rag/memory"
	"agentic-rag-be/pkg/rag/search"
)

type HealthResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Graph   string        `json:"graph"`
	Redis   memory.Health `json:"redis"`
}

type DebugToolsRequest struct {
	SearchQuery string `json:"search_query"`
	UserID      string `json:"user_id"`
}

type EmbeddingProbe struct {
	Success bool   `json:"success"`
	Length  int    `json:"length"`
	Error   string `json:"error,omitempty"`
}

type CorpusProbe struct {
	Success   bool                       `json:"success"`
	Outcome   search.Outcome             `json:"outcome"`
	Count     int                        `json:"count"`
	Documents []search.RetrievedDocument `json:"documents"`
	Error     string                     `json:"error,omitempty"`
}

type DebugToolsResults struct {
	Embedding      EmbeddingProbe `json:"embedding"`
	UserDocuments  CorpusProbe    `json:"user_documents"`
	AdminDocuments CorpusProbe    `json:"admin_documents"`
}

type DebugToolsResponse struct {
	Query   string            `json:"query"`
	UserID  string            `json:"user_id"`
	Results DebugToolsResults `json:"results"`
	Success bool              `json:"success"`
}

type ToolListResponse struct {
	Tools   []string `json:"tools"`
	Count   int      `json:"count"`
	Success bool     `json:"success"`
}

// LogsQuery pages the log file. A RequestID returns that request's entries
// unpaged and ignores the other fields.
type LogsQuery struct {
	Level     string
	RequestID string
	Limit     int
	Offset    int
}

type LogsResponse struct {
	Logs    []logger.LogEntry `json:"logs"`
	Success bool              `json:"success"`
}

type PerformanceTestRequest struct {
	SearchQuery string `json:"search_query"`
	UserID      string `json:"user_id"`
}

type SequentialRun struct {
	UserDocsCount  int     `json:"user_docs_count"`
	AdminDocsCount int     `json:"admin_docs_count"`
	UserDocsTime   float64 `json:"user_docs_time"`
	AdminDocsTime  float64 `json:"admin_docs_time"`
	TotalTime      float64 `json:"total_time"`
	Success        bool    `json:"success"`
}

type ParallelRun struct {
	UserDocsCount  int     `json:"user_docs_count"`
	AdminDocsCount int     `json:"admin_docs_count"`
	TotalTime      float64 `json:"total_time"`
	Success        bool    `json:"success"`
}

type PerformanceComparison struct {
	ImprovementPercent float64 `json:"improvement_percent"`
	SpeedupFactor      float64 `json:"speedup_factor"`
	TimeSavedSeconds   float64 `json:"time_saved_seconds"`
	Recommendation     string  `json:"recommendation"`
}

type PerformanceReport struct {
	Query      string                 `json:"query"`
	UserID     string                 `json:"user_id"`
	Timestamp  float64                `json:"timestamp"`
	Sequential SequentialRun          `json:"sequential"`
	Parallel   ParallelRun            `json:"parallel"`
	Comparison *PerformanceComparison `json:"comparison,omitempty"`
}

type PerformanceTestResponse struct {
	PerformanceTest PerformanceReport `json:"performance_test"`
	Success         bool              `json:"success"`
}
