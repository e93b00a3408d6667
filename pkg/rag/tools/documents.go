package tools

import (
	"context"

	"agentic-rag-be/pkg/rag/retrieval"
	"agentic-rag-be/pkg/rag/search"
)

// DocumentFinder is the part of the retriever the document tools use.
type DocumentFinder interface {
	FindUserDocuments(ctx context.Context, query, userID string) search.Result
	FindAdminDocuments(ctx context.Context, query string) search.Result
	RetrieveParallel(ctx context.Context, query, userID string) retrieval.Result
}

func documentParams() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"search_query": stringParam("Nội dung cần tìm kiếm"),
		},
		"required": []string{"search_query"},
	}
}

// errNoUser is returned to the model when a user-scoped tool runs outside a
// request. Owner names supplied in tool arguments are never used.
const errNoUser = "no user is bound to this request"

func documentsOrEmpty(docs []search.RetrievedDocument) []search.RetrievedDocument {
	if docs == nil {
		return []search.RetrievedDocument{}
	}
	return docs
}

type FindUserDocumentsTool struct {
	finder DocumentFinder
}

func NewFindUserDocumentsTool(finder DocumentFinder) *FindUserDocumentsTool {
	return &FindUserDocumentsTool{finder: finder}
}

func (t *FindUserDocumentsTool) Name() string { return "find_document_from_user" }

func (t *FindUserDocumentsTool) Description() string {
	return "Tìm kiếm tài liệu từ người dùng. Search the current user's uploaded documents with hybrid vector and keyword search."
}

func (t *FindUserDocumentsTool) Parameters() map[string]interface{} { return documentParams() }

func (t *FindUserDocumentsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := stringArg(args, "search_query")
	if query == "" {
		return ErrorResult("search_query parameter is required")
	}
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return ErrorResult(errNoUser)
	}
	res := t.finder.FindUserDocuments(ctx, query, userID)
	return JSONResult(documentsOrEmpty(res.Documents)).WithError(res.Err)
}

type FindAdminDocumentsTool struct {
	finder DocumentFinder
}

func NewFindAdminDocumentsTool(finder DocumentFinder) *FindAdminDocumentsTool {
	return &FindAdminDocumentsTool{finder: finder}
}

func (t *FindAdminDocumentsTool) Name() string { return "find_document_from_admin" }

func (t *FindAdminDocumentsTool) Description() string {
	return "Tìm kiếm tài liệu từ admin. Search the shared knowledge base curated by administrators."
}

func (t *FindAdminDocumentsTool) Parameters() map[string]interface{} { return documentParams() }

func (t *FindAdminDocumentsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := stringArg(args, "search_query")
	if query == "" {
		return ErrorResult("search_query parameter is required")
	}
	res := t.finder.FindAdminDocuments(ctx, query)
	return JSONResult(documentsOrEmpty(res.Documents)).WithError(res.Err)
}

type FindDocumentsParallelTool struct {
	finder DocumentFinder
}

func NewFindDocumentsParallelTool(finder DocumentFinder) *FindDocumentsParallelTool {
	return &FindDocumentsParallelTool{finder: finder}
}

func (t *FindDocumentsParallelTool) Name() string { return "find_documents_parallel" }

func (t *FindDocumentsParallelTool) Description() string {
	return "Tìm kiếm tài liệu từ cả user và admin song song với shared embedding. Search both corpora at once."
}

func (t *FindDocumentsParallelTool) Parameters() map[string]interface{} { return documentParams() }

func (t *FindDocumentsParallelTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := stringArg(args, "search_query")
	if query == "" {
		return ErrorResult("search_query parameter is required")
	}
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return ErrorResult(errNoUser)
	}
	res := t.finder.RetrieveParallel(ctx, query, userID)
	return JSONResult(map[string]interface{}{
		"user_documents":  documentsOrEmpty(res.UserDocuments),
		"admin_documents": documentsOrEmpty(res.AdminDocuments),
	})
}
