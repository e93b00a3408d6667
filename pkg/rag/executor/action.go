package executor

import (
	"context"

	"agentic-rag-be/pkg/rag/state"
)

// action executes every tool call on the newest AI message and answers
// each with a tool message carrying the same call id.
func (g *Graph) action(ctx context.Context, st state.ConversationState) state.Patch {
	last, ok := st.LastMessage()
	if !ok || !last.HasToolCalls() {
		return state.Patch{}
	}

	results := make([]state.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		res := g.deps.Tools.Execute(ctx, call.Name, call.Args)
		if res.IsError {
			g.logger.Warn("GRAPH", "Tool returned an error", map[string]interface{}{"tool": call.Name, "result": res.ForLLM})
		}
		results = append(results, state.NewTool(call.ID, call.Name, res.ForLLM))
	}
	return state.Patch{Messages: results}
}
