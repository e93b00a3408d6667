package service

import (
	"context"
	"math"
	"time"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/rag/memory"
	"agentic-rag-be/pkg/rag/retrieval"
	"agentic-rag-be/pkg/rag/search"
)

const (
	defaultDebugQuery       = "test query"
	defaultPerformanceQuery = "test performance query"
	defaultTestUser         = "test_user"
	debugPreviewDocs        = 2
)

// CorpusRetriever is implemented by retrieval.Retriever.
type CorpusRetriever interface {
	FindUserDocuments(ctx context.Context, query, userID string) search.Result
	FindAdminDocuments(ctx context.Context, query string) search.Result
	RetrieveParallel(ctx context.Context, query, userID string) retrieval.Result
}

type HealthChecker interface {
	Health(ctx context.Context) memory.Health
}

type ToolLister interface {
	List() []string
}

type LogReader interface {
	GetLogs(level string, limit, offset int) ([]logger.LogEntry, error)
	FindByRequestID(requestID string) ([]logger.LogEntry, error)
}

type IDiagnosticsService interface {
	Health(ctx context.Context) *dto.HealthResponse
	DebugTools(ctx context.Context, req *dto.DebugToolsRequest) *dto.DebugToolsResponse
	ToolNames() *dto.ToolListResponse
	Logs(q dto.LogsQuery) (*dto.LogsResponse, error)
	PerformanceTest(ctx context.Context, req *dto.PerformanceTestRequest) *dto.PerformanceTestResponse
}

type diagnosticsService struct {
	graphReady bool
	health     HealthChecker
	embedder   QueryEmbedder
	retriever  CorpusRetriever
	tools      ToolLister
	logs       LogReader
	logger     logger.ILogger
}

func NewDiagnosticsService(
	graphReady bool,
	health HealthChecker,
	embedder QueryEmbedder,
	retriever CorpusRetriever,
	tools ToolLister,
	logs LogReader,
	log logger.ILogger,
) IDiagnosticsService {
	return &diagnosticsService{
		graphReady: graphReady,
		health:     health,
		embedder:   embedder,
		retriever:  retriever,
		tools:      tools,
		logs:       logs,
		logger:     log,
	}
}

func (s *diagnosticsService) Health(ctx context.Context) *dto.HealthResponse {
	res := &dto.HealthResponse{Status: "ok", Message: "API is running", Graph: "ready"}
	if !s.graphReady {
		res.Graph = "not_initialized"
		res.Status = "degraded"
	}
	res.Redis = s.health.Health(ctx)
	if res.Redis.Status != "healthy" {
		res.Status = "degraded"
	}
	return res
}

func (s *diagnosticsService) DebugTools(ctx context.Context, req *dto.DebugToolsRequest) *dto.DebugToolsResponse {
	query := valueOrDefault(req.SearchQuery, defaultDebugQuery)
	userID := valueOrDefault(req.UserID, defaultTestUser)

	var results dto.DebugToolsResults
	if vector, err := s.embedder.Embed(ctx, query); err != nil {
		results.Embedding = dto.EmbeddingProbe{Error: err.Error()}
	} else {
		results.Embedding = dto.EmbeddingProbe{Success: true, Length: len(vector)}
	}
	results.UserDocuments = probe(s.retriever.FindUserDocuments(ctx, query, userID))
	results.AdminDocuments = probe(s.retriever.FindAdminDocuments(ctx, query))

	return &dto.DebugToolsResponse{Query: query, UserID: userID, Results: results, Success: true}
}

func probe(res search.Result) dto.CorpusProbe {
	p := dto.CorpusProbe{
		Success:   res.Outcome != search.OutcomeFailed,
		Outcome:   res.Outcome,
		Count:     len(res.Documents),
		Documents: nonNil(res.Documents),
	}
	if len(p.Documents) > debugPreviewDocs {
		p.Documents = p.Documents[:debugPreviewDocs]
	}
	if res.Err != nil {
		p.Error = res.Err.Error()
	}
	return p
}

func (s *diagnosticsService) ToolNames() *dto.ToolListResponse {
	names := s.tools.List()
	return &dto.ToolListResponse{Tools: names, Count: len(names), Success: true}
}

func (s *diagnosticsService) Logs(q dto.LogsQuery) (*dto.LogsResponse, error) {
	var entries []logger.LogEntry
	var err error
	if q.RequestID != "" {
		entries, err = s.logs.FindByRequestID(q.RequestID)
	} else {
		entries, err = s.logs.GetLogs(q.Level, q.Limit, q.Offset)
	}
	if err != nil {
		return nil, err
	}
	return &dto.LogsResponse{Logs: entries, Success: true}, nil
}

// PerformanceTest times the two corpora searched one after the other against
// the single-embedding parallel path.
func (s *diagnosticsService) PerformanceTest(ctx context.Context, req *dto.PerformanceTestRequest) *dto.PerformanceTestResponse {
	query := valueOrDefault(req.SearchQuery, defaultPerformanceQuery)
	userID := valueOrDefault(req.UserID, defaultTestUser)
	report := dto.PerformanceReport{
		Query:     query,
		UserID:    userID,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	}

	seqStart := time.Now()
	userStart := time.Now()
	user := s.retriever.FindUserDocuments(ctx, query, userID)
	userTime := time.Since(userStart)
	adminStart := time.Now()
	admin := s.retriever.FindAdminDocuments(ctx, query)
	adminTime := time.Since(adminStart)
	report.Sequential = dto.SequentialRun{
		UserDocsCount:  len(user.Documents),
		AdminDocsCount: len(admin.Documents),
		UserDocsTime:   seconds(userTime),
		AdminDocsTime:  seconds(adminTime),
		TotalTime:      seconds(time.Since(seqStart)),
		Success:        user.Outcome != search.OutcomeFailed && admin.Outcome != search.OutcomeFailed,
	}

	parStart := time.Now()
	parallel := s.retriever.RetrieveParallel(ctx, query, userID)
	report.Parallel = dto.ParallelRun{
		UserDocsCount:  len(parallel.UserDocuments),
		AdminDocsCount: len(parallel.AdminDocuments),
		TotalTime:      seconds(time.Since(parStart)),
		Success:        parallel.UserOutcome != search.OutcomeFailed && parallel.AdminOutcome != search.OutcomeFailed,
	}

	if report.Sequential.Success && report.Parallel.Success {
		c := Compare(report.Sequential.TotalTime, report.Parallel.TotalTime)
		report.Comparison = &c
	}
	s.logger.Info("API", "Performance test completed", map[string]interface{}{
		"sequential_s": report.Sequential.TotalTime,
		"parallel_s":   report.Parallel.TotalTime,
	})
	return &dto.PerformanceTestResponse{PerformanceTest: report, Success: true}
}

// Compare derives the improvement figures from two wall-clock totals in seconds.
func Compare(sequential, parallel float64) dto.PerformanceComparison {
	var improvement, speedup float64
	if sequential != 0 {
		improvement = (sequential - parallel) / sequential * 100
	}
	if parallel != 0 {
		speedup = math.Round(sequential/parallel*100) / 100
	}
	rec := "Sequential is faster"
	if improvement > 0 {
		rec = "Parallel execution is faster"
	}
	return dto.PerformanceComparison{
		ImprovementPercent: math.Round(improvement*10) / 10,
		SpeedupFactor:      speedup,
		TimeSavedSeconds:   math.Round((sequential-parallel)*1000) / 1000,
		Recommendation:     rec,
	}
}

func valueOrDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
