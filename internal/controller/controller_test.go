package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/internal/pkg/serverutils"
	"agentic-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatService struct {
	got      *dto.ChatRequest
	clientID string
	res      *dto.ChatResponse
	err      error
}

func (f *fakeChatService) Chat(ctx context.Context, req *dto.ChatRequest, clientID string) (*dto.ChatResponse, error) {
	f.got = req
	f.clientID = clientID
	return f.res, f.err
}

type fakeMemoryService struct {
	scope string
	prefs map[string]interface{}
}

func (f *fakeMemoryService) Get(ctx context.Context, userID string) (*dto.UserMemoryResponse, error) {
	return &dto.UserMemoryResponse{UserID: userID, LongTermMemoryTypes: []string{}, Success: true}, nil
}

func (f *fakeMemoryService) Clear(ctx context.Context, userID, scope string) (*dto.MemoryActionResponse, error) {
	f.scope = scope
	return &dto.MemoryActionResponse{Message: "cleared " + scope, Success: true}, nil
}

func (f *fakeMemoryService) SavePreferences(ctx context.Context, userID string, prefs map[string]interface{}) (*dto.MemoryActionResponse, error) {
	if len(prefs) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No preferences data provided")
	}
	f.prefs = prefs
	return &dto.MemoryActionResponse{Message: "saved", Success: true}, nil
}

type fakeDiagnostics struct{}

func (fakeDiagnostics) Health(ctx context.Context) *dto.HealthResponse {
	return &dto.HealthResponse{Status: "ok", Message: "API is running", Graph: "ready"}
}

func (fakeDiagnostics) DebugTools(ctx context.Context, req *dto.DebugToolsRequest) *dto.DebugToolsResponse {
	return &dto.DebugToolsResponse{Query: req.SearchQuery, UserID: req.UserID, Success: true}
}

func (fakeDiagnostics) ToolNames() *dto.ToolListResponse {
	return &dto.ToolListResponse{Tools: []string{"find_document_from_user"}, Count: 1, Success: true}
}

func (fakeDiagnostics) Logs(q dto.LogsQuery) (*dto.LogsResponse, error) {
	id := fmt.Sprintf("%s-%d-%d", q.Level, q.Limit, q.Offset)
	if q.RequestID != "" {
		id = "req-" + q.RequestID
	}
	return &dto.LogsResponse{Logs: []logger.LogEntry{{Id: id}}, Success: true}, nil
}

func (fakeDiagnostics) PerformanceTest(ctx context.Context, req *dto.PerformanceTestRequest) *dto.PerformanceTestResponse {
	return &dto.PerformanceTestResponse{PerformanceTest: dto.PerformanceReport{Query: req.SearchQuery}, Success: true}
}

func newTestApp(register ...func(r fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	app.Use(serverutils.ClientIdentityMiddleware)
	for _, reg := range register {
		reg(app)
	}
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestChatController(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *fakeChatService
		wantStatus int
		wantKey    string
	}{
		{
			name:       "answer",
			body:       `{"message":"hello","user_id":"u1"}`,
			svc:        &fakeChatService{res: &dto.ChatResponse{RequestID: "abcd1234", UserID: "u1", Response: "Xin chào!", Success: true}},
			wantStatus: http.StatusOK,
			wantKey:    "response",
		},
		{
			name:       "missing message",
			body:       `{"user_id":"u1"}`,
			svc:        &fakeChatService{},
			wantStatus: http.StatusBadRequest,
			wantKey:    "message",
		},
		{
			name:       "malformed body",
			body:       `{"message":`,
			svc:        &fakeChatService{},
			wantStatus: http.StatusBadRequest,
			wantKey:    "message",
		},
		{
			name:       "agent failure keeps request id",
			body:       `{"message":"loop"}`,
			svc:        &fakeChatService{res: &dto.ChatResponse{RequestID: "abcd1234", Error: "Lỗi thực thi agent", Success: false}, err: service.ErrAgentFailed},
			wantStatus: http.StatusInternalServerError,
			wantKey:    "request_id",
		},
		{
			name:       "graph not ready",
			body:       `{"message":"hi"}`,
			svc:        &fakeChatService{err: fiber.NewError(fiber.StatusServiceUnavailable, "Agent graph not initialised yet")},
			wantStatus: http.StatusServiceUnavailable,
			wantKey:    "message",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(NewChatController(tt.svc).RegisterRoutes)

			status, body := do(t, app, http.MethodPost, "/chat", tt.body)

			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, body, tt.wantKey)
		})
	}
}

func TestChatController_PassesClientIdentity(t *testing.T) {
	svc := &fakeChatService{res: &dto.ChatResponse{Success: true}}
	app := newTestApp(NewChatController(svc).RegisterRoutes)

	status, _ := do(t, app, http.MethodPost, "/chat", `{"message":"hi"}`)

	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(svc.clientID, "user_"))
	assert.Empty(t, svc.got.UserID)
}

func TestMemoryController(t *testing.T) {
	svc := &fakeMemoryService{}
	app := newTestApp(NewMemoryController(svc).RegisterRoutes)

	status, body := do(t, app, http.MethodGet, "/memory/u1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", body["user_id"])

	status, _ = do(t, app, http.MethodDelete, "/memory/u1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "all", svc.scope)

	status, _ = do(t, app, http.MethodDelete, "/memory/u1?type=short_term", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "short_term", svc.scope)

	status, _ = do(t, app, http.MethodPost, "/preferences/u1", `{"language":"vi"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "vi", svc.prefs["language"])

	status, body = do(t, app, http.MethodPost, "/preferences/u1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No preferences data provided", body["message"])
}

type fakeSearchService struct {
	userReq  *dto.SearchUserDocumentsRequest
	clientID string
}

func (f *fakeSearchService) SearchUserDocuments(ctx context.Context, req *dto.SearchUserDocumentsRequest, clientID string) (*dto.SearchResponse, error) {
	f.userReq = req
	f.clientID = clientID
	return &dto.SearchResponse{UserID: clientID, SearchType: req.SearchType, Success: true}, nil
}

func (f *fakeSearchService) SearchAdminDocuments(ctx context.Context, req *dto.SearchAdminDocumentsRequest, clientID string) (*dto.SearchResponse, error) {
	return &dto.SearchResponse{UserID: clientID, SearchQuery: req.Query, Success: true}, nil
}

func TestSearchController(t *testing.T) {
	svc := &fakeSearchService{}
	app := newTestApp(NewSearchController(svc).RegisterRoutes)

	status, _ := do(t, app, http.MethodPost, "/search/user-documents", `{"query":"refund","search_type":"vector","limit":3}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, svc.userReq.Limit)
	assert.True(t, strings.HasPrefix(svc.clientID, "user_"))

	status, _ = do(t, app, http.MethodPost, "/search/user-documents", `{"query":"refund","search_type":"fuzzy"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, app, http.MethodPost, "/search/admin-documents", `{"query":"policy"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "policy", body["search_query"])

	status, _ = do(t, app, http.MethodPost, "/search/admin-documents", `{"limit":2}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSystemController(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("agentic_rag_up 1\n"))
	})
	app := newTestApp(NewSystemController(fakeDiagnostics{}, metrics).RegisterRoutes)

	status, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = do(t, app, http.MethodPost, "/debug/tools", `{"search_query":"q","user_id":"u1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "q", body["query"])

	status, body = do(t, app, http.MethodGet, "/debug/tools", "")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = do(t, app, http.MethodGet, "/debug/logs?level=error&limit=5&offset=2", "")
	assert.Equal(t, http.StatusOK, status)
	logs := body["logs"].([]interface{})
	assert.Equal(t, "error-5-2", logs[0].(map[string]interface{})["id"])

	_, body = do(t, app, http.MethodGet, "/debug/logs?request_id=ab12cd34", "")
	logs = body["logs"].([]interface{})
	assert.Equal(t, "req-ab12cd34", logs[0].(map[string]interface{})["id"])

	status, body = do(t, app, http.MethodPost, "/test/performance", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "agentic_rag_up 1")
}
