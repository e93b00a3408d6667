package tools

import "agentic-rag-be/internal/pkg/logger"

// Deps are the collaborators behind the default tool set.
type Deps struct {
	Finder     DocumentFinder
	Reranker   DocumentReranker
	Summarizer ConversationSummarizer
	Classifier QueryClassifier
	Replier    DirectReplier
}

// NewDefaultRegistry registers the seven agent tools.
func NewDefaultRegistry(d Deps, log logger.ILogger) *Registry {
	r := NewRegistry(log)
	r.Register(NewFindUserDocumentsTool(d.Finder))
	r.Register(NewFindAdminDocumentsTool(d.Finder))
	r.Register(NewFindDocumentsParallelTool(d.Finder))
	r.Register(NewRerankDocumentsTool(d.Reranker))
	r.Register(NewSummarizeConversationTool(d.Summarizer))
	r.Register(NewClassifyQueryTool(d.Classifier))
	r.Register(NewDirectResponseTool(d.Replier))
	return r
}
