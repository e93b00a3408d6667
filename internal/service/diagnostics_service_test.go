package service

import (
	"context"
	"errors"
	"testing"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/rag/memory"
	"agentic-rag-be/pkg/rag/retrieval"
	"agentic-rag-be/pkg/rag/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHealth memory.Health

func (h stubHealth) Health(ctx context.Context) memory.Health { return memory.Health(h) }

type stubRetriever struct {
	user, admin []search.RetrievedDocument
	adminOut    search.Outcome
}

func (r *stubRetriever) FindUserDocuments(ctx context.Context, query, userID string) search.Result {
	return search.Result{Documents: r.user, Outcome: search.OutcomeOK}
}

func (r *stubRetriever) FindAdminDocuments(ctx context.Context, query string) search.Result {
	out := r.adminOut
	if out == "" {
		out = search.OutcomeOK
	}
	var err error
	if out == search.OutcomeFailed {
		err = errors.New("index offline")
	}
	return search.Result{Documents: r.admin, Outcome: out, Err: err}
}

func (r *stubRetriever) RetrieveParallel(ctx context.Context, query, userID string) retrieval.Result {
	return retrieval.Result{
		UserDocuments:  r.user,
		AdminDocuments: r.admin,
		UserOutcome:    search.OutcomeOK,
		AdminOutcome:   search.OutcomeOK,
	}
}

type stubTools []string

func (s stubTools) List() []string { return s }

type stubLogs struct {
	level     string
	requestID string
}

func (s *stubLogs) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	s.level = level
	return []logger.LogEntry{{Id: "1", Level: level, Message: "hello"}}, nil
}

func (s *stubLogs) FindByRequestID(requestID string) ([]logger.LogEntry, error) {
	s.requestID = requestID
	return []logger.LogEntry{{Id: "2", RequestID: requestID}, {Id: "3", RequestID: requestID}}, nil
}

func docs(ids ...string) []search.RetrievedDocument {
	out := make([]search.RetrievedDocument, len(ids))
	for i, id := range ids {
		out[i] = search.RetrievedDocument{ID: id, Content: "content " + id}
	}
	return out
}

func newDiagnostics(ready bool, health memory.Health, r CorpusRetriever) IDiagnosticsService {
	return NewDiagnosticsService(ready, stubHealth(health), &stubEmbedder{}, r, stubTools{"a", "b"}, &stubLogs{}, logger.NewNopLogger())
}

func TestDiagnostics_Health(t *testing.T) {
	tests := []struct {
		name   string
		ready  bool
		health memory.Health
		status string
		graph  string
	}{
		{"all good", true, memory.Health{Status: "healthy"}, "ok", "ready"},
		{"store down", true, memory.Health{Status: "unhealthy", Error: "dial tcp"}, "degraded", "ready"},
		{"graph missing", false, memory.Health{Status: "healthy"}, "degraded", "not_initialized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newDiagnostics(tt.ready, tt.health, &stubRetriever{}).Health(context.Background())

			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.graph, res.Graph)
			assert.Equal(t, "API is running", res.Message)
			assert.Equal(t, tt.health.Status, res.Redis.Status)
		})
	}
}

func TestDiagnostics_DebugTools(t *testing.T) {
	r := &stubRetriever{user: docs("u1", "u2", "u3"), adminOut: search.OutcomeFailed}
	svc := newDiagnostics(true, memory.Health{Status: "healthy"}, r)

	res := svc.DebugTools(context.Background(), &dto.DebugToolsRequest{})

	assert.Equal(t, "test query", res.Query)
	assert.Equal(t, "test_user", res.UserID)
	assert.True(t, res.Results.Embedding.Success)
	assert.Equal(t, 3, res.Results.Embedding.Length)
	assert.Equal(t, 3, res.Results.UserDocuments.Count)
	assert.Len(t, res.Results.UserDocuments.Documents, 2)
	assert.False(t, res.Results.AdminDocuments.Success)
	assert.Equal(t, "index offline", res.Results.AdminDocuments.Error)
	assert.NotNil(t, res.Results.AdminDocuments.Documents)
}

func TestDiagnostics_ToolNamesAndLogs(t *testing.T) {
	logs := &stubLogs{}
	svc := NewDiagnosticsService(true, stubHealth{}, &stubEmbedder{}, &stubRetriever{}, stubTools{"a", "b"}, logs, logger.NewNopLogger())

	names := svc.ToolNames()
	assert.Equal(t, 2, names.Count)

	res, err := svc.Logs(dto.LogsQuery{Level: "error", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "error", logs.level)
	assert.Len(t, res.Logs, 1)

	res, err = svc.Logs(dto.LogsQuery{RequestID: "ab12cd34", Level: "error"})
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", logs.requestID)
	assert.Len(t, res.Logs, 2)
}

func TestDiagnostics_PerformanceTest(t *testing.T) {
	r := &stubRetriever{user: docs("u1", "u2"), admin: docs("a1")}
	svc := newDiagnostics(true, memory.Health{Status: "healthy"}, r)

	res := svc.PerformanceTest(context.Background(), &dto.PerformanceTestRequest{SearchQuery: "refund", UserID: "u1"})

	report := res.PerformanceTest
	assert.Equal(t, "refund", report.Query)
	assert.Equal(t, 2, report.Sequential.UserDocsCount)
	assert.Equal(t, 1, report.Sequential.AdminDocsCount)
	assert.Equal(t, 2, report.Parallel.UserDocsCount)
	assert.True(t, report.Sequential.Success)
	assert.True(t, report.Parallel.Success)
	assert.NotNil(t, report.Comparison)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name                 string
		sequential, parallel float64
		want                 dto.PerformanceComparison
	}{
		{"parallel faster", 2.0, 1.0, dto.PerformanceComparison{ImprovementPercent: 50, SpeedupFactor: 2, TimeSavedSeconds: 1, Recommendation: "Parallel execution is faster"}},
		{"sequential faster", 1.0, 1.25, dto.PerformanceComparison{ImprovementPercent: -25, SpeedupFactor: 0.8, TimeSavedSeconds: -0.25, Recommendation: "Sequential is faster"}},
		{"zero timings", 0, 0, dto.PerformanceComparison{Recommendation: "Sequential is faster"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.sequential, tt.parallel))
		})
	}
}
