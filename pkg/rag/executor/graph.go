package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
	ragcontext "agentic-rag-be/pkg/rag/context"
	"agentic-rag-be/pkg/rag/retrieval"
	"agentic-rag-be/pkg/rag/search"
	"agentic-rag-be/pkg/rag/state"
	"agentic-rag-be/pkg/rag/tools"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrStepLimitExceeded = errors.New("agent step limit exceeded")
	ErrNotInitialized    = errors.New("agent graph not initialized")
)

const DefaultStepLimit = 30

type Node string

const (
	NodeMemoryInit       Node = "memory_init"
	NodeClassify         Node = "classify_query"
	NodeRetrieveParallel Node = "retrieve_context_parallel"
	NodeRetrieveUser     Node = "retrieve_user_context"
	NodeRetrieveAdmin    Node = "retrieve_admin_context"
	NodeDirect           Node = "direct_response"
	NodeAgent            Node = "agent"
	NodeAction           Node = "action_node"
	NodeMemorySave       Node = "memory_save"
	NodeEnd              Node = "__end__"
)

type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

type MemoryStore interface {
	Snapshot(ctx context.Context, userID string) state.MemorySnapshot
	SaveShortTerm(ctx context.Context, userID string, messages []state.Message) error
	SummarizeTurn(ctx context.Context, userID string, all []state.Message) bool
}

type Classifier interface {
	Classify(ctx context.Context, query string) state.Classification
}

type Retriever interface {
	RetrieveParallel(ctx context.Context, query, userID string) retrieval.Result
	FindUserDocuments(ctx context.Context, query, userID string) search.Result
	FindAdminDocuments(ctx context.Context, query string) search.Result
}

type Reranker interface {
	Rerank(ctx context.Context, question string, docs []search.RetrievedDocument) ([]search.RetrievedDocument, search.Outcome)
	RerankBoth(ctx context.Context, question string, user, admin []search.RetrievedDocument) ([]search.RetrievedDocument, []search.RetrievedDocument)
}

type DirectResponder interface {
	Respond(ctx context.Context, query string, queryType state.QueryType) string
}

type AgentResponder interface {
	Respond(ctx context.Context, st state.ConversationState, defs []llm.ToolDefinition) state.Message
}

type ToolRunner interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) *tools.Result
	Definitions() []llm.ToolDefinition
}

// NodeObserver receives the wall time of every node run.
type NodeObserver interface {
	ObserveNode(node string, d time.Duration)
}

type Deps struct {
	Memory     MemoryStore
	Classifier Classifier
	Retriever  Retriever
	Reranker   Reranker
	Context    *ragcontext.Builder
	Direct     DirectResponder
	Agent      AgentResponder
	Tools      ToolRunner
	Observer   NodeObserver
}

type Config struct {
	Mode      Mode
	StepLimit int
}

// Graph runs one chat turn as a finite-state machine over Node values.
// Every request gets its own ConversationState; nodes return patches.
type Graph struct {
	deps   Deps
	cfg    Config
	nodes  map[Node]nodeFunc
	tracer trace.Tracer
	logger logger.ILogger
}

type nodeFunc func(ctx context.Context, st state.ConversationState) state.Patch

func NewGraph(deps Deps, cfg Config, log logger.ILogger) (*Graph, error) {
	if deps.Memory == nil || deps.Classifier == nil || deps.Retriever == nil || deps.Reranker == nil ||
		deps.Direct == nil || deps.Agent == nil || deps.Tools == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrNotInitialized)
	}
	if deps.Context == nil {
		deps.Context = ragcontext.NewBuilder(ragcontext.DefaultScoreThreshold, ragcontext.DefaultUserTopK, ragcontext.DefaultAdminTopK)
	}
	if cfg.StepLimit <= 0 {
		cfg.StepLimit = DefaultStepLimit
	}
	if cfg.Mode != ModeSequential {
		cfg.Mode = ModeParallel
	}

	g := &Graph{
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("agentic-rag/executor"),
		logger: log,
	}
	g.nodes = map[Node]nodeFunc{
		NodeMemoryInit:       g.memoryInit,
		NodeClassify:         g.classify,
		NodeRetrieveParallel: g.retrieveParallel,
		NodeRetrieveUser:     g.retrieveUser,
		NodeRetrieveAdmin:    g.retrieveAdmin,
		NodeDirect:           g.direct,
		NodeAgent:            g.agent,
		NodeAction:           g.action,
		NodeMemorySave:       g.memorySave,
	}
	return g, nil
}

func (g *Graph) Mode() Mode {
	return g.cfg.Mode
}

type Result struct {
	State   state.ConversationState
	Steps   int
	Visited []Node
}

// Retrieved reports whether the turn went through a retrieval node.
func (r Result) Retrieved() bool {
	for _, n := range r.Visited {
		if n == NodeRetrieveParallel || n == NodeRetrieveUser {
			return true
		}
	}
	return false
}

// Run executes the graph from memory_init until END. Exceeding the step
// limit aborts the turn with ErrStepLimitExceeded and the partial state.
func (g *Graph) Run(ctx context.Context, userID, input string) (Result, error) {
	if g == nil || g.nodes == nil {
		return Result{}, ErrNotInitialized
	}

	ctx, span := g.tracer.Start(ctx, "graph.run", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("mode", string(g.cfg.Mode)),
	))
	defer span.End()

	ctx = tools.WithUserID(ctx, userID)
	res := Result{State: state.New(userID, input)}

	for node := NodeMemoryInit; node != NodeEnd; node = Next(node, res.State, g.cfg.Mode) {
		if res.Steps >= g.cfg.StepLimit {
			err := fmt.Errorf("%w: %d steps, last node %s", ErrStepLimitExceeded, g.cfg.StepLimit, node)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			g.logger.Error("GRAPH", "Step limit exceeded", map[string]interface{}{"user_id": userID, "limit": g.cfg.StepLimit, "node": node})
			return res, err
		}
		res.Steps++
		res.Visited = append(res.Visited, node)
		res.State = res.State.Apply(g.runNode(ctx, node, res.State))
	}

	span.SetAttributes(attribute.Int("steps", res.Steps))
	return res, nil
}

func (g *Graph) runNode(ctx context.Context, node Node, st state.ConversationState) state.Patch {
	ctx, span := g.tracer.Start(ctx, "graph."+string(node))
	defer span.End()

	start := time.Now()
	patch := g.nodes[node](ctx, st)
	elapsed := time.Since(start)

	if g.deps.Observer != nil {
		g.deps.Observer.ObserveNode(string(node), elapsed)
	}
	g.logger.Debug("GRAPH", "Node completed", map[string]interface{}{
		"node":        node,
		"duration_ms": elapsed.Milliseconds(),
	})
	return patch
}

// Next is the transition function. It depends only on the node just run,
// the state after it, and the retrieval mode.
func Next(node Node, st state.ConversationState, mode Mode) Node {
	switch node {
	case NodeMemoryInit:
		return NodeClassify
	case NodeClassify:
		if st.Classification != nil && !st.Classification.NeedsRetrieval {
			return NodeDirect
		}
		if mode == ModeSequential {
			return NodeRetrieveUser
		}
		return NodeRetrieveParallel
	case NodeRetrieveUser:
		return NodeRetrieveAdmin
	case NodeRetrieveParallel, NodeRetrieveAdmin, NodeAction:
		return NodeAgent
	case NodeAgent:
		if last, ok := st.LastMessage(); ok && last.HasToolCalls() {
			return NodeAction
		}
		return NodeMemorySave
	case NodeDirect:
		return NodeMemorySave
	default:
		return NodeEnd
	}
}

// FinalAnswer returns the newest AI message that did not request tools.
func FinalAnswer(st state.ConversationState) (state.Message, bool) {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		m := st.Messages[i]
		if m.Type == state.AIMessage && !m.HasToolCalls() {
			return m, true
		}
	}
	return state.Message{}, false
}
