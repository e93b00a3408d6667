package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/reliability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(url string) *GeminiProvider {
	p := NewGeminiProvider("test-key", "gemini-2.0-flash", 0.3)
	p.BaseURL = url
	p.Retry = reliability.Policy{MaxRetries: 2, Base: time.Millisecond, Cap: time.Millisecond}
	return p
}

func TestChat_SendsSystemInstructionAndParsesText(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"xin "},{"text":"chào"}]}}]}`))
	}))
	defer srv.Close()

	out, err := newTestProvider(srv.URL).Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "persona"},
		{Role: llm.RoleUser, Content: "hi"},
	})

	require.NoError(t, err)
	assert.Equal(t, "xin chào", out)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "persona", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, ChatMessageRoleUser, got.Contents[0].Role)
	assert.Equal(t, 0.3, got.GenerationConfig.Temperature)
}

func TestChatWithTools_ParsesFunctionCalls(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"find_document_from_user","args":{"search_query":"refund"}}}]}}]}`))
	}))
	defer srv.Close()

	msg, err := newTestProvider(srv.URL).ChatWithTools(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "refund?"}},
		[]llm.ToolDefinition{{Name: "find_document_from_user", Description: "search", Parameters: map[string]interface{}{"type": "object"}}},
	)

	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "find_document_from_user", msg.ToolCalls[0].Name)
	assert.Equal(t, "refund", msg.ToolCalls[0].Args["search_query"])
	assert.NotEmpty(t, msg.ToolCalls[0].ID)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "find_document_from_user", got.Tools[0].FunctionDeclarations[0].Name)
}

func TestChat_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	out, err := newTestProvider(srv.URL).Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestChat_BadRequestIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Generate(context.Background(), "ping")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBuildRequest_ToolRoundTrip(t *testing.T) {
	req := buildRequest([]llm.Message{
		{Role: llm.RoleUser, Content: "q"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "t", Args: map[string]interface{}{"a": 1}}}},
		{Role: llm.RoleTool, Name: "t", ToolCallID: "c1", Content: "result"},
	}, nil, llm.Options{})

	require.Len(t, req.Contents, 3)
	assert.Equal(t, ChatMessageRoleModel, req.Contents[1].Role)
	assert.Equal(t, "t", req.Contents[1].Parts[0].FunctionCall.Name)
	assert.Equal(t, "result", req.Contents[2].Parts[0].FunctionResponse.Response["result"])
	assert.Nil(t, req.SystemInstruction)
}
