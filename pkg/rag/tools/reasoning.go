package tools

import (
	"context"
	"encoding/json"

	"agentic-rag-be/pkg/rag/search"
	"agentic-rag-be/pkg/rag/state"
)

type DocumentReranker interface {
	Rerank(ctx context.Context, question string, docs []search.RetrievedDocument) ([]search.RetrievedDocument, search.Outcome)
}

type ConversationSummarizer interface {
	Summarize(ctx context.Context, messages []string) string
}

type QueryClassifier interface {
	Classify(ctx context.Context, query string) state.Classification
}

type DirectReplier interface {
	Reply(ctx context.Context, query string, queryType state.QueryType) string
}

type RerankDocumentsTool struct {
	reranker DocumentReranker
}

func NewRerankDocumentsTool(reranker DocumentReranker) *RerankDocumentsTool {
	return &RerankDocumentsTool{reranker: reranker}
}

func (t *RerankDocumentsTool) Name() string { return "rerank_documents" }

func (t *RerankDocumentsTool) Description() string {
	return "Rerank documents based on relevance to user question. Each document gets a new_score between 0.0 and 1.0."
}

func (t *RerankDocumentsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_question": stringParam("Câu hỏi của người dùng"),
			"documents": map[string]interface{}{
				"type":        "array",
				"description": "Documents returned by a search tool",
				"items":       map[string]interface{}{"type": "object"},
			},
		},
		"required": []string{"user_question", "documents"},
	}
}

func (t *RerankDocumentsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	question := stringArg(args, "user_question")
	if question == "" {
		return ErrorResult("user_question parameter is required")
	}

	var docs []search.RetrievedDocument
	if raw, ok := args["documents"]; ok && raw != nil {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return ErrorResult("documents must be a list of documents").WithError(err)
		}
		if err := json.Unmarshal(encoded, &docs); err != nil {
			return ErrorResult("documents must be a list of documents").WithError(err)
		}
	}

	ranked, _ := t.reranker.Rerank(ctx, question, docs)
	return JSONResult(documentsOrEmpty(ranked))
}

type SummarizeConversationTool struct {
	summarizer ConversationSummarizer
}

func NewSummarizeConversationTool(summarizer ConversationSummarizer) *SummarizeConversationTool {
	return &SummarizeConversationTool{summarizer: summarizer}
}

func (t *SummarizeConversationTool) Name() string { return "summarize_conversation" }

func (t *SummarizeConversationTool) Description() string {
	return "Tóm tắt cuộc hội thoại. Summarize a list of conversation messages in 3-4 sentences."
}

func (t *SummarizeConversationTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"messages": map[string]interface{}{
				"type":        "array",
				"description": "Danh sách tin nhắn trong cuộc hội thoại",
				"items":       map[string]interface{}{"type": "string"},
			},
			"user_preferences": map[string]interface{}{
				"type":        "object",
				"description": "Thông tin preferences của user (optional)",
			},
		},
		"required": []string{"messages"},
	}
}

func (t *SummarizeConversationTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	raw, _ := args["messages"].([]interface{})
	messages := make([]string, 0, len(raw))
	for _, m := range raw {
		if s, ok := m.(string); ok {
			messages = append(messages, s)
		}
	}
	return NewResult(t.summarizer.Summarize(ctx, messages))
}

type ClassifyQueryTool struct {
	classifier QueryClassifier
}

func NewClassifyQueryTool(classifier QueryClassifier) *ClassifyQueryTool {
	return &ClassifyQueryTool{classifier: classifier}
}

func (t *ClassifyQueryTool) Name() string { return "classify_query_type" }

func (t *ClassifyQueryTool) Description() string {
	return "Phân loại câu hỏi: greeting, farewell, general_chat hoặc knowledge_query, và cho biết có cần truy xuất tài liệu không."
}

func (t *ClassifyQueryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_query": stringParam("Câu hỏi của người dùng"),
		},
		"required": []string{"user_query"},
	}
}

func (t *ClassifyQueryTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := stringArg(args, "user_query")
	if query == "" {
		return ErrorResult("user_query parameter is required")
	}
	return JSONResult(t.classifier.Classify(ctx, query))
}

type DirectResponseTool struct {
	replier DirectReplier
}

func NewDirectResponseTool(replier DirectReplier) *DirectResponseTool {
	return &DirectResponseTool{replier: replier}
}

func (t *DirectResponseTool) Name() string { return "direct_response" }

func (t *DirectResponseTool) Description() string {
	return "Trả lời trực tiếp câu hỏi của người dùng mà không cần truy vấn kiến thức. Directly respond to greetings, farewells and small talk."
}

func (t *DirectResponseTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_query": stringParam("Câu hỏi của người dùng"),
			"query_type": map[string]interface{}{
				"type":        "string",
				"description": "Loại câu hỏi",
				"enum":        []string{"greeting", "farewell", "general_chat"},
			},
		},
		"required": []string{"user_query"},
	}
}

func (t *DirectResponseTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := stringArg(args, "user_query")
	queryType := state.QueryType(stringArg(args, "query_type"))
	if queryType == "" {
		queryType = state.QueryGeneralChat
	}
	return NewResult(t.replier.Reply(ctx, query, queryType))
}
