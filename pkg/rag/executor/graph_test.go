package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"agentic-rag-be/internal/entity"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/internal/repository/contract"
	kvmemory "agentic-rag-be/internal/repository/memory"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/llm/llmtest"
	ragcontext "agentic-rag-be/pkg/rag/context"
	"agentic-rag-be/pkg/rag/intent"
	"agentic-rag-be/pkg/rag/memory"
	"agentic-rag-be/pkg/rag/rerank"
	"agentic-rag-be/pkg/rag/response"
	"agentic-rag-be/pkg/rag/retrieval"
	"agentic-rag-be/pkg/rag/search"
	"agentic-rag-be/pkg/rag/state"
	"agentic-rag-be/pkg/rag/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo counts every read that reaches the document store.
type countingRepo struct {
	contract.DocumentRepository
	reads atomic.Int32
}

func (r *countingRepo) VectorSearch(ctx context.Context, q contract.VectorQuery) ([]*entity.ScoredDocumentChunk, error) {
	r.reads.Add(1)
	return r.DocumentRepository.VectorSearch(ctx, q)
}

func (r *countingRepo) TextSearch(ctx context.Context, q contract.TextQuery) ([]*entity.ScoredDocumentChunk, error) {
	r.reads.Add(1)
	return r.DocumentRepository.TextSearch(ctx, q)
}

func (r *countingRepo) List(ctx context.Context, q contract.ListQuery) ([]*entity.DocumentChunk, error) {
	r.reads.Add(1)
	return r.DocumentRepository.List(ctx, q)
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type nodeTimes struct {
	seen []string
}

func (n *nodeTimes) ObserveNode(node string, _ time.Duration) {
	n.seen = append(n.seen, node)
}

var docID = regexp.MustCompile(`"id": "([^"]+)"`)

// gradeEverything scores every document in a rerank prompt at 0.9.
func gradeEverything(prompt string) llmtest.Reply {
	var grades []string
	for _, m := range docID.FindAllStringSubmatch(prompt, -1) {
		grades = append(grades, fmt.Sprintf(`{"id": %q, "new_score": 0.9}`, m[1]))
	}
	return llmtest.Text("[" + strings.Join(grades, ",") + "]")
}

type harness struct {
	graph      *Graph
	repo       *countingRepo
	memory     *memory.Manager
	classifier *llmtest.Provider
	agent      *llmtest.Provider
	observer   *nodeTimes
}

func newHarness(t *testing.T, mode Mode, stepLimit int) *harness {
	t.Helper()
	log := logger.NewNopLogger()

	docs, err := kvmemory.NewDocumentRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })
	require.NoError(t, docs.CreateBulk(context.Background(), []*entity.DocumentChunk{
		{Corpus: entity.CorpusUser, UploaderUsername: "u1", Content: "order 1182 was delivered on march 3", EmbeddingValue: []float32{1, 0}},
		{Corpus: entity.CorpusUser, UploaderUsername: "u2", Content: "another customer's order", EmbeddingValue: []float32{1, 0}},
		{Corpus: entity.CorpusAdmin, UploaderUsername: "admin", Content: "refunds are accepted within 30 days of delivery", EmbeddingValue: []float32{1, 0}},
	}))
	repo := &countingRepo{DocumentRepository: docs}

	h := &harness{
		repo:       repo,
		classifier: llmtest.New(),
		agent:      llmtest.New(),
		observer:   &nodeTimes{},
	}
	h.classifier.Default = llmtest.Text(`{"needs_retrieval": true, "query_type": "knowledge_query", "confidence": 0.9}`)

	reranker := llmtest.New()
	reranker.Handler = gradeEverything

	summarizer := memory.NewSummarizer(llmtest.New(), log)
	h.memory = memory.NewManager(kvmemory.NewKVStore(), memory.DefaultConfig(), summarizer, log)

	classifier := intent.NewClassifier(h.classifier, log)
	retriever := retrieval.NewRetriever(fixedEmbedder{}, search.NewStore(repo, "", log), retrieval.DefaultLimits, log)
	rr := rerank.NewReranker(reranker, log)
	direct := response.NewDirectResponder(nil, llmtest.New(), log)

	registry := tools.NewDefaultRegistry(tools.Deps{
		Finder:     retriever,
		Reranker:   rr,
		Summarizer: summarizer,
		Classifier: classifier,
		Replier:    direct,
	}, log)

	h.graph, err = NewGraph(Deps{
		Memory:     h.memory,
		Classifier: classifier,
		Retriever:  retriever,
		Reranker:   rr,
		Context:    ragcontext.NewBuilder(ragcontext.DefaultScoreThreshold, ragcontext.DefaultUserTopK, ragcontext.DefaultAdminTopK),
		Direct:     direct,
		Agent:      response.NewAgent(h.agent, log),
		Tools:      registry,
		Observer:   h.observer,
	}, Config{Mode: mode, StepLimit: stepLimit}, log)
	require.NoError(t, err)
	return h
}

func TestRun_GreetingTakesDirectPathWithoutSearching(t *testing.T) {
	h := newHarness(t, ModeParallel, 0)

	res, err := h.graph.Run(context.Background(), "u1", "Xin chào")

	require.NoError(t, err)
	assert.Equal(t, []Node{NodeMemoryInit, NodeClassify, NodeDirect, NodeMemorySave}, res.Visited)
	assert.False(t, res.Retrieved())

	answer, ok := FinalAnswer(res.State)
	require.True(t, ok)
	assert.Contains(t, response.GreetingTemplates, answer.Content)

	assert.Zero(t, h.repo.reads.Load())
	assert.Zero(t, h.classifier.Calls())
	assert.Zero(t, h.agent.Calls())
	assert.Len(t, h.memory.LoadShortTerm(context.Background(), "u1"), 2)
}

func TestRun_KnowledgeQueryWithToolCall(t *testing.T) {
	h := newHarness(t, ModeParallel, 0)
	h.agent.Replies = []llmtest.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "find_document_from_admin", Args: map[string]interface{}{"search_query": "refund window"}}}},
		llmtest.Text("Refunds are accepted within 30 days of delivery."),
	}

	res, err := h.graph.Run(context.Background(), "u1", "What is the refund window for order 1182?")

	require.NoError(t, err)
	assert.Equal(t, []Node{
		NodeMemoryInit, NodeClassify, NodeRetrieveParallel, NodeAgent, NodeAction, NodeAgent, NodeMemorySave,
	}, res.Visited)
	assert.True(t, res.Retrieved())

	answer, ok := FinalAnswer(res.State)
	require.True(t, ok)
	assert.Equal(t, "Refunds are accepted within 30 days of delivery.", answer.Content)

	require.NotNil(t, res.State.Context)
	assert.Contains(t, *res.State.Context, "order 1182 was delivered")
	assert.Contains(t, *res.State.Context, "refunds are accepted within 30 days")
	assert.NotContains(t, *res.State.Context, "another customer's order")

	require.Len(t, res.State.Messages, 4)
	toolMsg := res.State.Messages[2]
	assert.Equal(t, state.ToolMessage, toolMsg.Type)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, "refunds are accepted")

	assert.Contains(t, h.agent.Prompts()[0], "Reference context:")
	assert.Len(t, h.agent.Tools(), 7)
	assert.Len(t, h.memory.LoadShortTerm(context.Background(), "u1"), 4)
	assert.Equal(t, len(res.Visited), len(h.observer.seen))
}

func TestRun_VietnameseRefundQuestionIsGrounded(t *testing.T) {
	h := newHarness(t, ModeParallel, 0)
	h.agent.Default = llmtest.Text("Bạn có thể đổi trả trong vòng 30 ngày kể từ ngày giao hàng.")

	res, err := h.graph.Run(context.Background(), "u1", "Theo chính sách hoàn tiền, tôi có thể đổi trả trong bao lâu?")

	require.NoError(t, err)
	assert.Equal(t, []Node{
		NodeMemoryInit, NodeClassify, NodeRetrieveParallel, NodeAgent, NodeMemorySave,
	}, res.Visited)
	assert.True(t, res.Retrieved())
	assert.Equal(t, 1, h.classifier.Calls())
	assert.GreaterOrEqual(t, h.repo.reads.Load(), int32(2))

	require.NotNil(t, res.State.Context)
	assert.Contains(t, *res.State.Context, "order 1182 was delivered")
	assert.Contains(t, *res.State.Context, "refunds are accepted within 30 days")
	assert.Contains(t, h.agent.Prompts()[0], "refunds are accepted within 30 days")

	answer, ok := FinalAnswer(res.State)
	require.True(t, ok)
	assert.Contains(t, answer.Content, "30 ngày")
}

func TestRun_SequentialMode(t *testing.T) {
	h := newHarness(t, ModeSequential, 0)
	h.agent.Default = llmtest.Text("Order 1182 arrived on March 3.")

	res, err := h.graph.Run(context.Background(), "u1", "When was order 1182 delivered?")

	require.NoError(t, err)
	assert.Equal(t, []Node{
		NodeMemoryInit, NodeClassify, NodeRetrieveUser, NodeRetrieveAdmin, NodeAgent, NodeMemorySave,
	}, res.Visited)
	require.NotNil(t, res.State.Context)
	assert.Contains(t, *res.State.Context, "--- USER DOCUMENTS ---")
	assert.Contains(t, *res.State.Context, "Tài liệu người dùng 1")
	assert.Contains(t, *res.State.Context, "Tài liệu quản trị 1")
}

func TestRun_StepLimitAbortsEndlessToolCalls(t *testing.T) {
	h := newHarness(t, ModeParallel, DefaultStepLimit)
	h.agent.Default = llmtest.Reply{ToolCalls: []llm.ToolCall{{ID: "again", Name: "classify_query_type", Args: map[string]interface{}{"user_query": "x"}}}}

	res, err := h.graph.Run(context.Background(), "u1", "Keep calling tools about order 1182")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepLimitExceeded)
	assert.Equal(t, DefaultStepLimit, res.Steps)
	assert.NotContains(t, res.Visited, NodeMemorySave)
	assert.Empty(t, h.memory.LoadShortTerm(context.Background(), "u1"))
}

func TestRun_NotInitialized(t *testing.T) {
	var g *Graph
	_, err := g.Run(context.Background(), "u1", "hi")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = NewGraph(Deps{}, Config{}, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNext(t *testing.T) {
	retrieve := state.ConversationState{Classification: &state.Classification{NeedsRetrieval: true}}
	chat := state.ConversationState{Classification: &state.Classification{NeedsRetrieval: false}}
	toolCall := state.ConversationState{Messages: []state.Message{{Type: state.AIMessage, ToolCalls: []llm.ToolCall{{Name: "x"}}}}}
	answered := state.ConversationState{Messages: []state.Message{state.NewAI("done")}}

	tests := []struct {
		node Node
		st   state.ConversationState
		mode Mode
		want Node
	}{
		{NodeMemoryInit, state.ConversationState{}, ModeParallel, NodeClassify},
		{NodeClassify, retrieve, ModeParallel, NodeRetrieveParallel},
		{NodeClassify, retrieve, ModeSequential, NodeRetrieveUser},
		{NodeClassify, chat, ModeParallel, NodeDirect},
		{NodeClassify, state.ConversationState{}, ModeParallel, NodeRetrieveParallel},
		{NodeRetrieveUser, retrieve, ModeSequential, NodeRetrieveAdmin},
		{NodeRetrieveAdmin, retrieve, ModeSequential, NodeAgent},
		{NodeRetrieveParallel, retrieve, ModeParallel, NodeAgent},
		{NodeAgent, toolCall, ModeParallel, NodeAction},
		{NodeAgent, answered, ModeParallel, NodeMemorySave},
		{NodeAction, toolCall, ModeParallel, NodeAgent},
		{NodeDirect, answered, ModeParallel, NodeMemorySave},
		{NodeMemorySave, answered, ModeParallel, NodeEnd},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Next(tt.node, tt.st, tt.mode), "%s/%s", tt.node, tt.mode)
	}
}

func TestFinalAnswer(t *testing.T) {
	st := state.ConversationState{Messages: []state.Message{
		state.NewHuman("q"),
		{Type: state.AIMessage, ToolCalls: []llm.ToolCall{{Name: "x"}}},
		state.NewTool("1", "x", "[]"),
	}}
	_, ok := FinalAnswer(st)
	assert.False(t, ok)

	st.Messages = append(st.Messages, state.NewAI("final"))
	msg, ok := FinalAnswer(st)
	assert.True(t, ok)
	assert.Equal(t, "final", msg.Content)
}
