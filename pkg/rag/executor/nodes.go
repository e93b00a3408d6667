package executor

import (
	"context"
	"strings"

	ragcontext "agentic-rag-be/pkg/rag/context"
	"agentic-rag-be/pkg/rag/state"
)

func (g *Graph) memoryInit(ctx context.Context, st state.ConversationState) state.Patch {
	if st.UserID == "" {
		return state.Patch{}
	}
	snapshot := g.deps.Memory.Snapshot(ctx, st.UserID)
	g.logger.Info("GRAPH", "Memory loaded", map[string]interface{}{
		"user_id":    st.UserID,
		"short_term": len(snapshot.ShortTerm),
		"summaries":  len(snapshot.Summaries),
	})
	return state.Patch{Memory: &snapshot}
}

func (g *Graph) classify(ctx context.Context, st state.ConversationState) state.Patch {
	c := g.deps.Classifier.Classify(ctx, st.Input)
	g.logger.Info("GRAPH", "Query classified", map[string]interface{}{
		"query_type":      c.QueryType,
		"needs_retrieval": c.NeedsRetrieval,
		"confidence":      c.Confidence,
	})
	return state.Patch{Classification: &c}
}

// retrieveParallel searches both corpora with one embedding, reranks both
// lists concurrently and assembles the combined context.
func (g *Graph) retrieveParallel(ctx context.Context, st state.ConversationState) state.Patch {
	res := g.deps.Retriever.RetrieveParallel(ctx, st.Input, st.UserID)
	user, admin := g.deps.Reranker.RerankBoth(ctx, st.Input, res.UserDocuments, res.AdminDocuments)

	userBlock := g.deps.Context.UserBlock(user, ragcontext.LabelDocument)
	adminBlock := g.deps.Context.AdminBlock(admin, ragcontext.LabelDocument)
	memory := ragcontext.Memory(st.Memory.Preferences, st.Memory.Summaries)

	g.logger.Info("GRAPH", "Parallel context retrieved", map[string]interface{}{
		"user_docs":     len(user),
		"admin_docs":    len(admin),
		"user_outcome":  res.UserOutcome,
		"admin_outcome": res.AdminOutcome,
	})

	userContext := userBlock
	if userContext == "" {
		userContext = ragcontext.NoUserDocuments
	}
	return state.Patch{
		Context:      state.StringPtr(ragcontext.Combined(st.UserID, userBlock, adminBlock, memory)),
		UserContext:  &userContext,
		AdminContext: &adminBlock,
	}
}

func (g *Graph) retrieveUser(ctx context.Context, st state.ConversationState) state.Patch {
	found := g.deps.Retriever.FindUserDocuments(ctx, st.Input, st.UserID)
	ranked, _ := g.deps.Reranker.Rerank(ctx, st.Input, found.Documents)

	block := g.deps.Context.UserBlock(ranked, ragcontext.LabelUserDocument)
	memory := ragcontext.Memory(st.Memory.Preferences, st.Memory.Summaries)

	g.logger.Info("GRAPH", "User context retrieved", map[string]interface{}{"user_id": st.UserID, "docs": len(ranked), "outcome": found.Outcome})
	return state.Patch{UserContext: state.StringPtr(ragcontext.UserSection(st.UserID, block, memory))}
}

func (g *Graph) retrieveAdmin(ctx context.Context, st state.ConversationState) state.Patch {
	found := g.deps.Retriever.FindAdminDocuments(ctx, st.Input)
	ranked, _ := g.deps.Reranker.Rerank(ctx, st.Input, found.Documents)

	block := g.deps.Context.AdminBlock(ranked, ragcontext.LabelAdminDocument)
	userSection := ""
	if st.UserContext != nil {
		userSection = *st.UserContext
	}

	g.logger.Info("GRAPH", "Admin context retrieved", map[string]interface{}{"docs": len(ranked), "outcome": found.Outcome})
	return state.Patch{
		Context:      state.StringPtr(ragcontext.Sequential(st.UserID, userSection, block)),
		AdminContext: &block,
	}
}

func (g *Graph) direct(ctx context.Context, st state.ConversationState) state.Patch {
	queryType := state.QueryGeneralChat
	if st.Classification != nil && st.Classification.QueryType.Valid() {
		queryType = st.Classification.QueryType
	}
	answer := g.deps.Direct.Respond(ctx, st.Input, queryType)
	return state.Patch{Messages: []state.Message{state.NewAI(answer)}}
}

func (g *Graph) agent(ctx context.Context, st state.ConversationState) state.Patch {
	msg := g.deps.Agent.Respond(ctx, st, g.deps.Tools.Definitions())
	if msg.HasToolCalls() {
		names := make([]string, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			names[i] = tc.Name
		}
		g.logger.Info("GRAPH", "Agent requested tools", map[string]interface{}{"tools": strings.Join(names, ",")})
	}
	return state.Patch{Messages: []state.Message{msg}}
}

// memorySave persists remembered plus current messages and, for long
// conversations, stores a summary. Failures are logged and never fail the
// turn.
func (g *Graph) memorySave(ctx context.Context, st state.ConversationState) state.Patch {
	if st.UserID == "" {
		g.logger.Warn("GRAPH", "No user id, skipping memory save", nil)
		return state.Patch{}
	}

	all := make([]state.Message, 0, len(st.Memory.ShortTerm)+len(st.Messages))
	all = append(all, st.Memory.ShortTerm...)
	all = append(all, st.Messages...)

	if err := g.deps.Memory.SaveShortTerm(ctx, st.UserID, all); err != nil {
		g.logger.Warn("GRAPH", "Failed to save conversation to memory", map[string]interface{}{"user_id": st.UserID, "error": err.Error()})
	}
	if g.deps.Memory.SummarizeTurn(ctx, st.UserID, all) {
		g.logger.Info("GRAPH", "Conversation summary saved", map[string]interface{}{"user_id": st.UserID, "messages": len(all)})
	}
	return state.Patch{}
}
